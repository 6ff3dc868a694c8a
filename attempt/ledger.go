// Package attempt implements the durable ledger of delivery attempts.
package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Ledger records delivery attempts. Every Begin is paired with exactly one
// Complete; rows are append-mostly and serve audit queries.
type Ledger struct {
	store  Store
	logger *slog.Logger
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:  store,
		logger: logger,
	}
}

// Begin inserts an in_progress row for attempt n of an event. It fails
// with ErrDuplicate when that attempt number was already
// recorded, which lets the engine drop redelivered queue jobs.
func (l *Ledger) Begin(ctx context.Context, evtID, subID id.ID, n int) (*Attempt, error) {
	if n < 1 {
		return nil, fmt.Errorf("attempt: begin: number %d out of range", n)
	}

	att := &Attempt{
		Entity:         entity.New(),
		ID:             id.NewAttemptID(),
		EventID:        evtID,
		SubscriptionID: subID,
		Number:         n,
		Status:         StatusInProgress,
	}

	if err := l.store.CreateAttempt(ctx, att); err != nil {
		return nil, err
	}

	return att, nil
}

// Complete moves an attempt to its terminal status. Error messages and
// response excerpts are truncated before storage.
func (l *Ledger) Complete(ctx context.Context, att *Attempt, status Status, statusCode int, errMsg, responseBody string) error {
	if status != StatusSuccess && status != StatusFailed {
		return fmt.Errorf("attempt: complete: %q is not a terminal status", status)
	}

	now := time.Now().UTC()
	att.Status = status
	att.StatusCode = statusCode
	att.ErrorMessage = Truncate(errMsg)
	att.ResponseBody = Truncate(responseBody)
	att.CompletedAt = &now
	att.UpdatedAt = now

	return l.store.UpdateAttempt(ctx, att)
}

// ListByEvent returns an event's attempts, newest first.
func (l *Ledger) ListByEvent(ctx context.Context, evtID id.ID) ([]*Attempt, error) {
	return l.store.ListAttemptsByEvent(ctx, evtID)
}

// ListBySubscription returns a subscription's attempts, newest first.
func (l *Ledger) ListBySubscription(ctx context.Context, subID id.ID, opts ListOpts) ([]*Attempt, error) {
	return l.store.ListAttemptsBySubscription(ctx, subID, opts)
}

// ListAll returns all attempts ordered by timestamp descending.
func (l *Ledger) ListAll(ctx context.Context, opts ListOpts) ([]*Attempt, error) {
	return l.store.ListAttempts(ctx, opts)
}

// LatestNumber returns the highest attempt number recorded for an event,
// or 0 when the event has never been attempted.
func (l *Ledger) LatestNumber(ctx context.Context, evtID id.ID) (int, error) {
	return l.store.LatestAttemptNumber(ctx, evtID)
}

// CountByStatus returns the number of attempts currently in a status.
func (l *Ledger) CountByStatus(ctx context.Context, status Status) (int64, error) {
	return l.store.CountAttemptsByStatus(ctx, status)
}
