package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/subscription"
)

// EngineStore is the interface the engine needs to drain the queue and
// resolve jobs to their event and subscription.
type EngineStore interface {
	DequeueJobs(ctx context.Context, limit int) ([]queue.Job, error)
	EnqueueJob(ctx context.Context, job queue.Job, delay time.Duration) error
	GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error)
	GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error)
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency    int
	PollInterval   time.Duration
	BatchSize      int
	RequestTimeout time.Duration
	MaxAttempts    int
	RetrySchedule  []time.Duration
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Engine is the delivery worker pool that dequeues due jobs and processes
// them. Every processed job leaves exactly one row in the attempt ledger;
// jobs whose attempt number was already recorded are dropped.
type Engine struct {
	store   EngineStore
	ledger  *attempt.Ledger
	sender  *Sender
	retrier *Retrier
	config  EngineConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a delivery engine.
func NewEngine(store EngineStore, ledger *attempt.Ledger, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		ledger:  ledger,
		sender:  NewSender(cfg.RequestTimeout),
		retrier: NewRetrier(cfg.RetrySchedule, cfg.MaxAttempts),
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the delivery workers and poll loop.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()
}

// Stop cancels the poll loop and waits for in-flight deliveries to complete.
func (e *Engine) Stop(_ context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// pollLoop periodically dequeues due jobs and dispatches them to workers.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.DequeueJobs(ctx, e.config.BatchSize)
			if err != nil {
				e.logger.ErrorContext(ctx, "dequeue failed", "error", err)
				continue
			}

			for _, j := range batch {
				select {
				case <-ctx.Done():
					return
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(job queue.Job) {
					defer e.wg.Done()
					defer func() { <-sem }()
					e.process(ctx, job)
				}(j)
			}
		}
	}
}

// process handles a single job: resolve event + subscription, open a ledger
// row, send, decide, close the row, and schedule the next attempt if any.
func (e *Engine) process(ctx context.Context, job queue.Job) {
	evt, err := e.store.GetEvent(ctx, job.EventID)
	if err != nil {
		// An event deleted after enqueue is not an error worth an attempt
		// row; the job is dropped.
		if errors.Is(err, event.ErrNotFound) {
			e.logger.WarnContext(ctx, "dropping job for missing event",
				"event_id", job.EventID, "attempt", job.Attempt)
			return
		}
		e.logger.ErrorContext(ctx, "get event failed",
			"event_id", job.EventID, "error", err)
		return
	}

	sub, err := e.store.GetSubscription(ctx, evt.SubscriptionID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			e.logger.WarnContext(ctx, "dropping job for missing subscription",
				"event_id", job.EventID, "subscription_id", evt.SubscriptionID, "attempt", job.Attempt)
			return
		}
		e.logger.ErrorContext(ctx, "get subscription failed",
			"subscription_id", evt.SubscriptionID, "error", err)
		return
	}

	// Open the ledger row before touching the network. A duplicate here
	// means the queue redelivered a job whose attempt already ran.
	att, err := e.ledger.Begin(ctx, evt.ID, sub.ID, job.Attempt)
	if err != nil {
		if errors.Is(err, attempt.ErrDuplicate) {
			e.logger.DebugContext(ctx, "dropping redelivered job",
				"event_id", job.EventID, "attempt", job.Attempt)
			return
		}
		e.logger.ErrorContext(ctx, "begin attempt failed",
			"event_id", job.EventID, "attempt", job.Attempt, "error", err)
		return
	}

	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartAttemptSpan(ctx, evt.ID.String(), sub.ID.String(), job.Attempt)
	}

	result := e.sender.Send(ctx, sub, evt, job.Attempt)
	latencySeconds := float64(result.LatencyMs) / 1000.0

	outcome := e.retrier.Decide(result, job.Attempt)

	status := attempt.StatusSuccess
	if outcome != Delivered {
		status = attempt.StatusFailed
	}
	if err := e.ledger.Complete(ctx, att, status, result.StatusCode, result.Error, result.Response); err != nil {
		e.logger.ErrorContext(ctx, "complete attempt failed",
			"attempt_id", att.ID, "error", err)
	}

	if e.config.Metrics != nil {
		e.config.Metrics.RecordAttempt(outcome.String(), latencySeconds)
	}
	if span != nil {
		e.config.Tracer.EndAttemptSpan(span, result.StatusCode, result.LatencyMs, result.Error)
	}

	switch outcome {
	case Delivered:
		e.logger.DebugContext(ctx, "delivered",
			"event_id", evt.ID, "attempt", job.Attempt,
			"status", result.StatusCode, "latency_ms", result.LatencyMs)

	case Retry:
		delay := e.retrier.NextDelay(job.Attempt)
		next := queue.Job{EventID: evt.ID, Attempt: job.Attempt + 1}
		if err := e.store.EnqueueJob(ctx, next, delay); err != nil {
			e.logger.ErrorContext(ctx, "enqueue retry failed",
				"event_id", evt.ID, "attempt", next.Attempt, "error", err)
			return
		}
		e.logger.DebugContext(ctx, "retry scheduled",
			"event_id", evt.ID, "attempt", job.Attempt,
			"next_attempt", next.Attempt, "delay", delay)

	case Exhausted:
		e.logger.WarnContext(ctx, "delivery failed permanently",
			"event_id", evt.ID, "subscription_id", sub.ID,
			"attempts", job.Attempt, "status", result.StatusCode, "error", result.Error)
	}
}
