package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/xraph/conduit"

// Tracer provides OpenTelemetry tracing for Conduit.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Conduit tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartAttemptSpan starts a new span for a delivery attempt.
func (t *Tracer) StartAttemptSpan(ctx context.Context, eventID, subscriptionID string, attempt int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "conduit.attempt",
		trace.WithAttributes(
			attribute.String("conduit.event_id", eventID),
			attribute.String("conduit.subscription_id", subscriptionID),
			attribute.Int("conduit.attempt", attempt),
		),
	)
}

// EndAttemptSpan ends an attempt span with result attributes.
func (t *Tracer) EndAttemptSpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("conduit.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("conduit.error", err))
	}
	span.End()
}
