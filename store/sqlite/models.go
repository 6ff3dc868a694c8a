package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/subscription"
)

// SQLite has no native JSON column type, so structured fields are stored
// as TEXT and marshaled at the model boundary.

// --- Subscription models ---

type subscriptionModel struct {
	grove.BaseModel `grove:"table:conduit_subscriptions"`

	ID            string    `grove:"id,pk"`
	URL           string    `grove:"url"`
	Description   string    `grove:"description"`
	Secret        string    `grove:"secret"`
	SecretHash    string    `grove:"secret_hash"`
	Salt          string    `grove:"salt"`
	PayloadSchema string    `grove:"payload_schema"`
	Headers       string    `grove:"headers"`
	Metadata      string    `grove:"metadata"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	headers, _ := json.Marshal(sub.Headers)   //nolint:errcheck // best-effort
	metadata, _ := json.Marshal(sub.Metadata) //nolint:errcheck // best-effort

	return &subscriptionModel{
		ID:            sub.ID.String(),
		URL:           sub.URL,
		Description:   sub.Description,
		Secret:        sub.Secret,
		SecretHash:    sub.SecretHash,
		Salt:          sub.Salt,
		PayloadSchema: string(sub.PayloadSchema),
		Headers:       string(headers),
		Metadata:      string(metadata),
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}

	var schema json.RawMessage
	if m.PayloadSchema != "" {
		schema = json.RawMessage(m.PayloadSchema)
	}

	var headers map[string]string
	if m.Headers != "" && m.Headers != "null" {
		if err := json.Unmarshal([]byte(m.Headers), &headers); err != nil {
			return nil, fmt.Errorf("unmarshal subscription headers: %w", err)
		}
	}

	var metadata map[string]string
	if m.Metadata != "" && m.Metadata != "null" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal subscription metadata: %w", err)
		}
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
		PayloadSchema: schema,
		Headers:       headers,
		Metadata:      metadata,
	}, nil
}

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:conduit_events"`

	ID             string    `grove:"id,pk"`
	SubscriptionID string    `grove:"subscription_id"`
	Payload        string    `grove:"payload"`
	ReceivedAt     time.Time `grove:"received_at"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:             evt.ID.String(),
		SubscriptionID: evt.SubscriptionID.String(),
		Payload:        string(evt.Payload),
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

	var payload json.RawMessage
	if m.Payload != "" {
		payload = json.RawMessage(m.Payload)
	}

	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             evtID,
		SubscriptionID: subID,
		Payload:        payload,
		ReceivedAt:     m.ReceivedAt,
	}, nil
}

// --- Attempt models ---

type attemptModel struct {
	grove.BaseModel `grove:"table:conduit_attempts"`

	ID             string     `grove:"id,pk"`
	EventID        string     `grove:"event_id"`
	SubscriptionID string     `grove:"subscription_id"`
	Number         int        `grove:"attempt_number"`
	Status         string     `grove:"status"`
	StatusCode     int        `grove:"status_code"`
	ErrorMessage   string     `grove:"error_message"`
	ResponseBody   string     `grove:"response_body"`
	CompletedAt    *time.Time `grove:"completed_at"`
	CreatedAt      time.Time  `grove:"created_at"`
	UpdatedAt      time.Time  `grove:"updated_at"`
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
	grove.BaseModel `grove:"table:conduit_jobs"`

	EventID   string    `grove:"event_id,pk"`
	Attempt   int       `grove:"attempt,pk"`
	RunAt     time.Time `grove:"run_at"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func fromJobModel(m *jobModel) (queue.Job, error) {
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return queue.Job{}, fmt.Errorf("parse job event ID %q: %w", m.EventID, err)
	}
	return queue.Job{EventID: evtID, Attempt: m.Attempt, RunAt: m.RunAt}, nil
}
