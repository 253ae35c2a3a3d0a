package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/fyrsmithlabs/scribe/internal/pipeline"

// Metrics holds capture pipeline metrics.
type Metrics struct {
	meter    metric.Meter
	captures metric.Int64Counter
	duration metric.Float64Histogram
}

// NewMetrics creates a Metrics instance for the pipeline.
// Instrument creation errors leave the affected instrument nil; recording
// checks for nil so a broken meter never breaks capture calls.
func NewMetrics() *Metrics {
	m := &Metrics{
		meter: otel.Meter(instrumentationName),
	}
	m.captures, _ = m.meter.Int64Counter(
		"scribe.pipeline.captures_total",
		metric.WithDescription("Total capture attempts by disposition"),
		metric.WithUnit("{capture}"),
	)
	m.duration, _ = m.meter.Float64Histogram(
		"scribe.pipeline.capture_duration_seconds",
		metric.WithDescription("End-to-end capture duration in seconds, by disposition"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	return m
}

// RecordCapture records one capture attempt's disposition and duration.
func (m *Metrics) RecordCapture(ctx context.Context, disposition string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("disposition", disposition),
	}

	if m.captures != nil {
		m.captures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}
}
