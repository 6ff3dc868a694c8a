package observability

import (
	"testing"

	gu "github.com/xraph/go-utils/metrics"
)

func TestNewMetrics_Instruments(t *testing.T) {
	m := NewMetrics(gu.NewMetricsCollector("conduit"))

	if m.EventsIngestedTotal == nil {
		t.Fatal("EventsIngestedTotal should not be nil")
	}
	if m.AttemptsTotal == nil {
		t.Fatal("AttemptsTotal should not be nil")
	}
	if m.AttemptLatency == nil {
		t.Fatal("AttemptLatency should not be nil")
	}
	if m.PendingJobs == nil {
		t.Fatal("PendingJobs should not be nil")
	}
}

func TestRecordAttempt(t *testing.T) {
	m := NewMetrics(gu.NewMetricsCollector("conduit"))

	m.RecordAttempt("delivered", 0.5)
	m.RecordAttempt("retry", 1.2)
	m.RecordAttempt("exhausted", 0.3)
	m.RecordIngest()

	m.PendingJobs.Set(42)
}
