// Package ingest implements the intake side of the pipeline: it verifies
// inbound webhook requests, persists them as events, and enqueues the first
// delivery attempt.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/subscription"
)

var (
	// ErrInvalidPayload is returned when an inbound body is not valid JSON.
	ErrInvalidPayload = errors.New("conduit: invalid payload")

	// ErrPayloadValidationFailed is returned when a payload is well-formed
	// JSON but fails the subscription's payload schema.
	ErrPayloadValidationFailed = errors.New("conduit: payload validation failed")

	// ErrMissingSignature is returned when a subscription requires signing
	// but the request carried no signature header.
	ErrMissingSignature = errors.New("conduit: missing signature header")

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = errors.New("conduit: invalid signature")
)

// GatewayStore is the interface the gateway needs to accept an event.
type GatewayStore interface {
	GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error)
	CreateEvent(ctx context.Context, evt *event.Event) error
	EnqueueJob(ctx context.Context, job queue.Job, delay time.Duration) error
}

// Gateway accepts inbound webhook bodies for a subscription. Acceptance
// means the event is durable and its first delivery attempt is queued, not
// that it has been delivered.
type Gateway struct {
	store     GatewayStore
	validator *Validator
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewGateway creates an ingest gateway.
func NewGateway(store GatewayStore, metrics *observability.Metrics, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:     store,
		validator: NewValidator(),
		metrics:   metrics,
		logger:    logger,
	}
}

// Ingest verifies and accepts a webhook body for a subscription.
//
// Payload well-formedness is checked first, before the subscription lookup
// and the signature gate: malformed JSON is rejected as ErrInvalidPayload
// no matter which subscription it was aimed at or how it was signed.
//
// The signature is checked over the body exactly as received, before any
// re-serialization. Subscriptions without a secret accept unsigned
// requests; subscriptions with one reject requests whose header is absent
// (ErrMissingSignature) or wrong (ErrInvalidSignature).
func (g *Gateway) Ingest(ctx context.Context, subID id.ID, body []byte, sigHeader string) (*event.Event, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}

	sub, err := g.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}

	if sub.HasSecret() {
		if sigHeader == "" {
			return nil, ErrMissingSignature
		}
		if !sub.VerifySignature(body, sigHeader) {
			return nil, ErrInvalidSignature
		}
	}

	return g.accept(ctx, sub, body)
}

// IngestBypass accepts a webhook body without signature verification. The
// payload still has to be valid JSON and still passes schema validation.
func (g *Gateway) IngestBypass(ctx context.Context, subID id.ID, body []byte) (*event.Event, error) {
	if !json.Valid(body) {
		return nil, ErrInvalidPayload
	}

	sub, err := g.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	return g.accept(ctx, sub, body)
}

// accept validates, persists, and enqueues. The stored payload is the
// compacted form of the body; key order is preserved so a signature
// computed over the stored payload matches one computed over the original.
func (g *Gateway) accept(ctx context.Context, sub *subscription.Subscription, body []byte) (*event.Event, error) {
	if len(sub.PayloadSchema) > 0 {
		if err := g.validator.Validate(sub.PayloadSchema, body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPayloadValidationFailed, err)
		}
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		return nil, ErrInvalidPayload
	}

	evt := &event.Event{
		Entity:         entity.New(),
		ID:             id.NewEventID(),
		SubscriptionID: sub.ID,
		Payload:        json.RawMessage(compact.Bytes()),
		ReceivedAt:     time.Now().UTC(),
	}

	if err := g.store.CreateEvent(ctx, evt); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := g.store.EnqueueJob(ctx, queue.Job{EventID: evt.ID, Attempt: 1}, 0); err != nil {
		return nil, fmt.Errorf("enqueue first attempt: %w", err)
	}

	if g.metrics != nil {
		g.metrics.RecordIngest()
	}
	g.logger.DebugContext(ctx, "event accepted",
		"event_id", evt.ID, "subscription_id", sub.ID, "bytes", compact.Len())

	return evt, nil
}
