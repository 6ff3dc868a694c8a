package conduit

import (
	"context"
	"fmt"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/delivery"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/subscription"
)

// wireServices initializes the internal services after options have been applied.
func (c *Conduit) wireServices() {
	c.subscriptionSvc = subscription.NewService(c.store, c.logger)

	c.ledger = attempt.NewLedger(c.store, c.logger)

	c.gateway = ingest.NewGateway(c.store, c.metrics, c.logger)

	c.engine = delivery.NewEngine(c.store, c.ledger, delivery.EngineConfig{
		Concurrency:    c.config.Concurrency,
		PollInterval:   c.config.PollInterval,
		BatchSize:      c.config.BatchSize,
		RequestTimeout: c.config.RequestTimeout,
		MaxAttempts:    c.config.MaxAttempts,
		RetrySchedule:  c.config.RetrySchedule,
		Metrics:        c.metrics,
		Tracer:         c.tracer,
	}, c.logger)
}

// Start begins the delivery engine.
func (c *Conduit) Start(ctx context.Context) {
	c.engine.Start(ctx)
}

// Stop gracefully shuts down the delivery engine, waiting up to the
// configured shutdown timeout for in-flight deliveries.
func (c *Conduit) Stop(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ShutdownTimeout)
	defer cancel()
	c.engine.Stop(ctx)
}

// Ingest verifies and accepts a webhook body for a subscription.
//
// The critical path:
//  1. Look up the subscription (reject unknown IDs).
//  2. Verify the HMAC signature over the body as received, when the
//     subscription carries a secret.
//  3. Validate the payload: well-formed JSON, plus the subscription's
//     JSON Schema when one is set.
//  4. Persist the event. Acceptance means durable, not delivered.
//  5. Enqueue the first delivery attempt with zero delay.
func (c *Conduit) Ingest(ctx context.Context, subID id.ID, body []byte, sigHeader string) (*event.Event, error) {
	return c.gateway.Ingest(ctx, subID, body, sigHeader)
}

// IngestBypass accepts a webhook body without signature verification.
func (c *Conduit) IngestBypass(ctx context.Context, subID id.ID, body []byte) (*event.Event, error) {
	return c.gateway.IngestBypass(ctx, subID, body)
}

// Replay queues one extra delivery attempt for an event. The new attempt
// takes the next number after the highest one recorded, so the ledger stays
// contiguous, and it runs with zero delay. Replay returns the attempt
// number that was queued.
func (c *Conduit) Replay(ctx context.Context, evtID id.ID) (int, error) {
	if _, err := c.store.GetEvent(ctx, evtID); err != nil {
		return 0, err
	}

	latest, err := c.ledger.LatestNumber(ctx, evtID)
	if err != nil {
		return 0, fmt.Errorf("conduit: latest attempt number: %w", err)
	}

	next := latest + 1
	if err := c.store.EnqueueJob(ctx, queue.Job{EventID: evtID, Attempt: next}, 0); err != nil {
		return 0, fmt.Errorf("conduit: enqueue replay: %w", err)
	}

	c.logger.DebugContext(ctx, "replay queued", "event_id", evtID, "attempt", next)
	return next, nil
}

// Stats summarizes the current delivery workload.
type Stats struct {
	PendingJobs        int64 `json:"pending_jobs"`
	InProgressAttempts int64 `json:"in_progress_attempts"`
	SucceededAttempts  int64 `json:"succeeded_attempts"`
	FailedAttempts     int64 `json:"failed_attempts"`
}

// Stats reports queue depth and attempt counts by status.
func (c *Conduit) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error

	if s.PendingJobs, err = c.store.CountPendingJobs(ctx); err != nil {
		return Stats{}, fmt.Errorf("conduit: count pending jobs: %w", err)
	}
	if s.InProgressAttempts, err = c.store.CountAttemptsByStatus(ctx, attempt.StatusInProgress); err != nil {
		return Stats{}, fmt.Errorf("conduit: count attempts: %w", err)
	}
	if s.SucceededAttempts, err = c.store.CountAttemptsByStatus(ctx, attempt.StatusSuccess); err != nil {
		return Stats{}, fmt.Errorf("conduit: count attempts: %w", err)
	}
	if s.FailedAttempts, err = c.store.CountAttemptsByStatus(ctx, attempt.StatusFailed); err != nil {
		return Stats{}, fmt.Errorf("conduit: count attempts: %w", err)
	}

	if c.metrics != nil {
		c.metrics.PendingJobs.Set(float64(s.PendingJobs))
	}
	return s, nil
}

// Subscriptions returns the subscription management service.
func (c *Conduit) Subscriptions() *subscription.Service {
	return c.subscriptionSvc
}

// Attempts returns the attempt ledger.
func (c *Conduit) Attempts() *attempt.Ledger {
	return c.ledger
}

// Store returns the underlying store.
func (c *Conduit) Store() store.Store {
	return c.store
}

// Metrics returns the metric instruments, or nil when none are configured.
func (c *Conduit) Metrics() *observability.Metrics {
	return c.metrics
}
