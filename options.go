package conduit

import (
	"log/slog"
	"time"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/delivery"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/subscription"
)

// Conduit is the root webhook relay engine.
type Conduit struct {
	config          Config
	store           store.Store
	subscriptionSvc *subscription.Service
	gateway         *ingest.Gateway
	ledger          *attempt.Ledger
	engine          *delivery.Engine
	metrics         *observability.Metrics
	tracer          *observability.Tracer
	logger          *slog.Logger
}

// Option configures a Conduit instance.
type Option func(*Conduit) error

// New creates a new Conduit with the given options.
func New(opts ...Option) (*Conduit, error) {
	c := &Conduit{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.store == nil {
		return nil, ErrNoStore
	}
	c.wireServices()
	return c, nil
}

// WithStore sets the persistence backend for the Conduit instance.
func WithStore(s store.Store) Option {
	return func(c *Conduit) error {
		c.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Conduit instance.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conduit) error {
		c.logger = logger
		return nil
	}
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(c *Conduit) error {
		c.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the delivery engine checks for due jobs.
func WithPollInterval(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of jobs dequeued per poll cycle.
func WithBatchSize(n int) Option {
	return func(c *Conduit) error {
		c.config.BatchSize = n
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.RequestTimeout = d
		return nil
	}
}

// WithMaxAttempts sets the maximum number of delivery attempts per event.
func WithMaxAttempts(n int) Option {
	return func(c *Conduit) error {
		c.config.MaxAttempts = n
		return nil
	}
}

// WithRetrySchedule sets the backoff intervals between attempts.
func WithRetrySchedule(schedule []time.Duration) Option {
	return func(c *Conduit) error {
		c.config.RetrySchedule = schedule
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight deliveries on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Conduit) error {
		c.config.ShutdownTimeout = d
		return nil
	}
}

// WithMetrics sets the metric instruments recorded by the engine and gateway.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Conduit) error {
		c.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used to span delivery attempts.
func WithTracer(t *observability.Tracer) Option {
	return func(c *Conduit) error {
		c.tracer = t
		return nil
	}
}
