package bunstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/subscription"
)

// --- Subscription models ---

type subscriptionModel struct {
	bun.BaseModel `bun:"table:conduit_subscriptions"`

	ID            string            `bun:"id,pk"`
	URL           string            `bun:"url,notnull,default:''"`
	Description   string            `bun:"description,notnull,default:''"`
	Secret        string            `bun:"secret,notnull,default:''"`
	SecretHash    string            `bun:"secret_hash,notnull,default:''"`
	Salt          string            `bun:"salt,notnull,default:''"`
	PayloadSchema json.RawMessage   `bun:"payload_schema,type:jsonb"`
	Headers       map[string]string `bun:"headers,type:jsonb"`
	Metadata      map[string]string `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time         `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time         `bun:"updated_at,notnull,default:current_timestamp"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:            sub.ID.String(),
		URL:           sub.URL,
		Description:   sub.Description,
		Secret:        sub.Secret,
		SecretHash:    sub.SecretHash,
		Salt:          sub.Salt,
		PayloadSchema: sub.PayloadSchema,
		Headers:       sub.Headers,
		Metadata:      sub.Metadata,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}
	return &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            subID,
		URL:           m.URL,
		Description:   m.Description,
		Secret:        m.Secret,
		SecretHash:    m.SecretHash,
		Salt:          m.Salt,
		PayloadSchema: m.PayloadSchema,
		Headers:       m.Headers,
		Metadata:      m.Metadata,
	}, nil
}

// --- Event models ---

type eventModel struct {
	bun.BaseModel `bun:"table:conduit_events"`

	ID             string          `bun:"id,pk"`
	SubscriptionID string          `bun:"subscription_id,notnull,default:''"`
	Payload        json.RawMessage `bun:"payload,type:jsonb"`
	ReceivedAt     time.Time       `bun:"received_at,notnull,default:current_timestamp"`
	CreatedAt      time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		SubscriptionID: evt.SubscriptionID.String(),
		Payload:        evt.Payload,
		ReceivedAt:     evt.ReceivedAt,
		CreatedAt:      evt.CreatedAt,
		UpdatedAt:      evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             evtID,
		SubscriptionID: subID,
		Payload:        m.Payload,
		ReceivedAt:     m.ReceivedAt,
	}, nil
}

// --- Attempt models ---

type attemptModel struct {
	bun.BaseModel `bun:"table:conduit_attempts"`

	ID             string     `bun:"id,pk"`
	EventID        string     `bun:"event_id,notnull,default:''"`
	SubscriptionID string     `bun:"subscription_id,notnull,default:''"`
	Number         int        `bun:"attempt_number,notnull,default:0"`
	Status         string     `bun:"status,notnull,default:'in_progress'"`
	StatusCode     int        `bun:"status_code,notnull,default:0"`
	ErrorMessage   string     `bun:"error_message,notnull,default:''"`
	ResponseBody   string     `bun:"response_body,notnull,default:''"`
	CompletedAt    *time.Time `bun:"completed_at"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
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

// --- Job models ---

type jobModel struct {
	bun.BaseModel `bun:"table:conduit_jobs"`

	EventID   string    `bun:"event_id,pk"`
	Attempt   int       `bun:"attempt,pk"`
	RunAt     time.Time `bun:"run_at,notnull,default:current_timestamp"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

func fromJobModel(m *jobModel) (queue.Job, error) {
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return queue.Job{}, fmt.Errorf("parse job event ID %q: %w", m.EventID, err)
	}
	return queue.Job{EventID: evtID, Attempt: m.Attempt, RunAt: m.RunAt}, nil
}
