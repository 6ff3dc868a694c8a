package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/id"
)

// CreateAttempt inserts a new attempt row. The unique (event_id,
// attempt_number) index turns concurrent inserts of the same number into
// duplicate-key errors.
func (s *Store) CreateAttempt(ctx context.Context, att *attempt.Attempt) error {
	m := toAttemptModel(att)

	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongod.IsDuplicateKeyError(err) {
			return attempt.ErrDuplicate
		}

		return fmt.Errorf("conduit/mongo: create attempt: %w", err)
	}

	return nil
}

// UpdateAttempt writes an attempt's terminal state.
func (s *Store) UpdateAttempt(ctx context.Context, att *attempt.Attempt) error {
	m := toAttemptModel(att)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("conduit/mongo: update attempt: %w", err)
	}

	if res.MatchedCount() == 0 {
		return attempt.ErrNotFound
	}

	return nil
}

// GetAttempt returns an attempt by ID.
func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*attempt.Attempt, error) {
	var m attemptModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": attID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, attempt.ErrNotFound
		}

		return nil, fmt.Errorf("conduit/mongo: get attempt: %w", err)
	}

	return fromAttemptModel(&m)
}

// ListAttemptsByEvent returns an event's attempts, newest first.
func (s *Store) ListAttemptsByEvent(ctx context.Context, evtID id.ID) ([]*attempt.Attempt, error) {
	return s.listAttempts(ctx,
		bson.M{"event_id": evtID.String()},
		bson.D{{Key: "attempt_number", Value: -1}},
		attempt.ListOpts{})
}

// ListAttemptsBySubscription returns a subscription's attempts, newest first.
func (s *Store) ListAttemptsBySubscription(ctx context.Context, subID id.ID, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	return s.listAttempts(ctx,
		bson.M{"subscription_id": subID.String()},
		bson.D{{Key: "created_at", Value: -1}},
		opts)
}

// ListAttempts returns all attempts ordered by timestamp descending.
func (s *Store) ListAttempts(ctx context.Context, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	return s.listAttempts(ctx,
		bson.M{},
		bson.D{{Key: "created_at", Value: -1}},
		opts)
}

func (s *Store) listAttempts(ctx context.Context, filter bson.M, sort bson.D, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	var models []attemptModel

	if opts.Status != nil {
		filter["status"] = string(*opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(sort)

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("conduit/mongo: list attempts: %w", err)
	}

	result := make([]*attempt.Attempt, 0, len(models))

	for i := range models {
		att, err := fromAttemptModel(&models[i])
		if err != nil {
			return nil, err
		}

		result = append(result, att)
	}

	return result, nil
}

// LatestAttemptNumber returns the highest attempt number recorded for an
// event, or 0 when none exist.
func (s *Store) LatestAttemptNumber(ctx context.Context, evtID id.ID) (int, error) {
	var m attemptModel

	err := s.mdb.NewFind(&m).
		Filter(bson.M{"event_id": evtID.String()}).
		Sort(bson.D{{Key: "attempt_number", Value: -1}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}

		return 0, fmt.Errorf("conduit/mongo: latest attempt number: %w", err)
	}

	return m.Number, nil
}

// CountAttemptsByStatus returns the number of attempts in a status.
func (s *Store) CountAttemptsByStatus(ctx context.Context, status attempt.Status) (int64, error) {
	count, err := s.mdb.NewFind((*attemptModel)(nil)).
		Filter(bson.M{"status": string(status)}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("conduit/mongo: count attempts: %w", err)
	}

	return count, nil
}
