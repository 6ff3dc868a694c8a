// Package queue defines the delayed work queue contract the delivery
// engine schedules retries through.
package queue

import (
	"context"
	"time"

	"github.com/xraph/conduit/id"
)

// Job is one unit of delivery work: a specific attempt number for a
// specific event.
type Job struct {
	// EventID references the event to deliver.
	EventID id.ID `json:"event_id"`

	// Attempt is the 1-based attempt number this job will execute.
	Attempt int `json:"attempt"`

	// RunAt is the earliest instant the job may surface to a consumer.
	RunAt time.Time `json:"run_at"`
}

// Store is the delayed work queue contract.
//
// An enqueued job becomes visible to exactly one dequeue call no earlier
// than its delay; lateness is best-effort bounded by the engine's poll
// interval. Claiming is removal: a consumer crash between dequeue and the
// attempt completing drops that job, and the event stays reachable through
// replay. Duplicates can still reach consumers — the same (event, attempt)
// pair re-enqueued while the first copy is in flight — so consumers must
// treat a duplicate as droppable (the attempt ledger's duplicate-number
// guard provides that idempotency).
type Store interface {
	// EnqueueJob schedules a job to surface after delay.
	EnqueueJob(ctx context.Context, job Job, delay time.Duration) error

	// DequeueJobs atomically claims up to limit due jobs.
	DequeueJobs(ctx context.Context, limit int) ([]Job, error)

	// CountPendingJobs returns the number of jobs not yet claimed.
	CountPendingJobs(ctx context.Context) (int64, error)
}
