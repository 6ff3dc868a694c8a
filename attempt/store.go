package attempt

import (
	"context"
	"errors"

	"github.com/xraph/conduit/id"
)

var (
	// ErrNotFound is returned when an attempt cannot be found.
	ErrNotFound = errors.New("conduit: delivery attempt not found")

	// ErrDuplicate is returned when an attempt row for the same event and
	// attempt number already exists.
	ErrDuplicate = errors.New("conduit: duplicate delivery attempt")
)

// Store defines the persistence contract for the attempt ledger.
//
// Implementations must support concurrent inserts and updates; each row is
// owned exclusively by the worker that created it until its terminal
// update, so no cross-worker contention on a single row is expected.
type Store interface {
	// CreateAttempt inserts a new attempt row. Returns ErrDuplicate when
	// a row for the same event and attempt number already exists,
	// regardless of its status; this is the guard against
	// double-processed queue deliveries.
	CreateAttempt(ctx context.Context, att *Attempt) error

	// UpdateAttempt writes an attempt's terminal state.
	UpdateAttempt(ctx context.Context, att *Attempt) error

	// GetAttempt returns an attempt by ID.
	GetAttempt(ctx context.Context, attID id.ID) (*Attempt, error)

	// ListAttemptsByEvent returns an event's attempts, newest first.
	ListAttemptsByEvent(ctx context.Context, evtID id.ID) ([]*Attempt, error)

	// ListAttemptsBySubscription returns a subscription's attempts, newest first.
	ListAttemptsBySubscription(ctx context.Context, subID id.ID, opts ListOpts) ([]*Attempt, error)

	// ListAttempts returns all attempts ordered by timestamp descending.
	ListAttempts(ctx context.Context, opts ListOpts) ([]*Attempt, error)

	// LatestAttemptNumber returns the highest attempt number recorded for
	// an event, or 0 when none exist.
	LatestAttemptNumber(ctx context.Context, evtID id.ID) (int, error)

	// CountAttemptsByStatus returns the number of attempts in a status.
	CountAttemptsByStatus(ctx context.Context, status Status) (int64, error)
}
