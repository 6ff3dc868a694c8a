package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Conduit, backed by any go-utils
// MetricFactory (e.g. the forge-managed metrics system via fapp.Metrics()).
type Metrics struct {
	EventsIngestedTotal gu.Counter
	AttemptsTotal       gu.Counter
	AttemptLatency      gu.Histogram
	PendingJobs         gu.Gauge
}

// NewMetrics creates Conduit metric instruments using the supplied factory.
// Pass fapp.Metrics() from a forge extension, or metrics.NewMetricsCollector()
// for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		EventsIngestedTotal: factory.Counter("conduit_events_ingested_total"),
		AttemptsTotal:       factory.Counter("conduit_attempts_total"),
		AttemptLatency:      factory.Histogram("conduit_attempt_latency_seconds"),
		PendingJobs:         factory.Gauge("conduit_pending_jobs"),
	}
}

// RecordIngest records an accepted event.
func (m *Metrics) RecordIngest() {
	m.EventsIngestedTotal.Inc()
}

// RecordAttempt records a delivery attempt with its outcome and latency.
func (m *Metrics) RecordAttempt(outcome string, latencySeconds float64) {
	m.AttemptsTotal.WithLabels(map[string]string{"outcome": outcome}).Inc()
	m.AttemptLatency.Observe(latencySeconds)
}
