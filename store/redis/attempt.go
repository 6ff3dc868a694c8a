package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// attemptModel is the JSON representation stored in Redis.
type attemptModel struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	SubscriptionID string     `json:"subscription_id"`
	Number         int        `json:"attempt_number"`
	Status         string     `json:"status"`
	StatusCode     int        `json:"status_code,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	ResponseBody   string     `json:"response_body,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func toAttemptModel(att *attempt.Attempt) *attemptModel {
	return &attemptModel{
		ID:             att.ID.String(),
		EventID:        att.EventID.String(),
		SubscriptionID: att.SubscriptionID.String(),
		Number:         att.Number,
		Status:         string(att.Status),
		StatusCode:     att.StatusCode,
		ErrorMessage:   att.ErrorMessage,
		ResponseBody:   att.ResponseBody,
		CompletedAt:    att.CompletedAt,
		CreatedAt:      att.CreatedAt,
		UpdatedAt:      att.UpdatedAt,
	}
}

func fromAttemptModel(m *attemptModel) (*attempt.Attempt, error) {
	attID, err := id.ParseAttemptID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse attempt ID %q: %w", m.ID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	return &attempt.Attempt{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             attID,
		EventID:        evtID,
		SubscriptionID: subID,
		Number:         m.Number,
		Status:         attempt.Status(m.Status),
		StatusCode:     m.StatusCode,
		ErrorMessage:   m.ErrorMessage,
		ResponseBody:   m.ResponseBody,
		CompletedAt:    m.CompletedAt,
	}, nil
}

func (s *Store) CreateAttempt(ctx context.Context, att *attempt.Attempt) error {
	m := toAttemptModel(att)

	// SETNX on the (event, number) key is the duplicate guard; only the
	// first writer for a given number gets to insert a row.
	claimed, err := s.rdb.SetNX(ctx, attemptNumberKey(m.EventID, m.Number), m.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("conduit/redis: claim attempt number: %w", err)
	}
	if !claimed {
		return attempt.ErrDuplicate
	}

	key := entityKey(prefixAttempt, m.ID)
	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("conduit/redis: create attempt: %w", err)
	}

	score := scoreFromTime(m.CreatedAt)
	pipe := s.rdb.Pipeline()
	pipe.ZAdd(ctx, zAttemptAll, goredis.Z{Score: score, Member: m.ID})
	pipe.ZAdd(ctx, zAttemptEvt+m.EventID, goredis.Z{Score: float64(m.Number), Member: m.ID})
	pipe.ZAdd(ctx, zAttemptSub+m.SubscriptionID, goredis.Z{Score: score, Member: m.ID})
	pipe.SAdd(ctx, sAttemptStatus+m.Status, m.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conduit/redis: create attempt indexes: %w", err)
	}
	return nil
}

func (s *Store) UpdateAttempt(ctx context.Context, att *attempt.Attempt) error {
	key := entityKey(prefixAttempt, att.ID.String())

	var existing attemptModel
	if err := s.getEntity(ctx, key, &existing); err != nil {
		if isNotFound(err) {
			return attempt.ErrNotFound
		}
		return fmt.Errorf("conduit/redis: update attempt: %w", err)
	}

	m := toAttemptModel(att)
	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = now()
	if err := s.setEntity(ctx, key, m); err != nil {
		return fmt.Errorf("conduit/redis: update attempt: %w", err)
	}

	if existing.Status != m.Status {
		pipe := s.rdb.Pipeline()
		pipe.SRem(ctx, sAttemptStatus+existing.Status, m.ID)
		pipe.SAdd(ctx, sAttemptStatus+m.Status, m.ID)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("conduit/redis: update attempt status index: %w", err)
		}
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*attempt.Attempt, error) {
	var m attemptModel
	if err := s.getEntity(ctx, entityKey(prefixAttempt, attID.String()), &m); err != nil {
		if isNotFound(err) {
			return nil, attempt.ErrNotFound
		}
		return nil, fmt.Errorf("conduit/redis: get attempt: %w", err)
	}
	return fromAttemptModel(&m)
}

func (s *Store) ListAttemptsByEvent(ctx context.Context, evtID id.ID) ([]*attempt.Attempt, error) {
	// Scored by attempt number, so reverse iteration yields newest first.
	ids, err := s.rdb.ZRange(ctx, zAttemptEvt+evtID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list attempts by event: %w", err)
	}
	return s.collectAttempts(ctx, ids, nil)
}

func (s *Store) ListAttemptsBySubscription(ctx context.Context, subID id.ID, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	ids, err := s.rdb.ZRange(ctx, zAttemptSub+subID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list attempts by subscription: %w", err)
	}
	result, err := s.collectAttempts(ctx, ids, opts.Status)
	if err != nil {
		return nil, err
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListAttempts(ctx context.Context, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	ids, err := s.rdb.ZRange(ctx, zAttemptAll, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conduit/redis: list attempts: %w", err)
	}
	result, err := s.collectAttempts(ctx, ids, opts.Status)
	if err != nil {
		return nil, err
	}
	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// collectAttempts fetches attempt rows for index members in reverse
// (DESC) order, optionally filtering by status.
func (s *Store) collectAttempts(ctx context.Context, ids []string, status *attempt.Status) ([]*attempt.Attempt, error) {
	result := make([]*attempt.Attempt, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		var m attemptModel
		if err := s.getEntity(ctx, entityKey(prefixAttempt, ids[i]), &m); err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		if status != nil && attempt.Status(m.Status) != *status {
			continue
		}
		att, err := fromAttemptModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, nil
}

func (s *Store) LatestAttemptNumber(ctx context.Context, evtID id.ID) (int, error) {
	zs, err := s.rdb.ZRevRangeWithScores(ctx, zAttemptEvt+evtID.String(), 0, 0).Result()
	if err != nil {
		if isRedisNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("conduit/redis: latest attempt number: %w", err)
	}
	if len(zs) == 0 {
		return 0, nil
	}
	return int(zs[0].Score), nil
}

func (s *Store) CountAttemptsByStatus(ctx context.Context, status attempt.Status) (int64, error) {
	count, err := s.rdb.SCard(ctx, sAttemptStatus+string(status)).Result()
	if err != nil {
		return 0, fmt.Errorf("conduit/redis: count attempts: %w", err)
	}
	return count, nil
}
