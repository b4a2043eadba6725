// Package observe provides OpenTelemetry metrics for batch analysis runs.
//
// Instruments are created through the OpenTelemetry Metrics API so any
// [metric.MeterProvider] can back them. [InitProvider] installs an SDK
// provider with a Prometheus exporter; tests should use [NewMetrics] with a
// ManualReader-backed provider instead.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pamguide metrics.
const meterName = "github.com/linuxmatters/pamguide"

// Status attribute values for [Metrics.RecordFile].
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Metrics holds the metric instruments for the analysis pipeline.
// All fields are safe for concurrent use.
type Metrics struct {
	// Files counts processed recordings. Attribute: status (ok|failed), kind (error kind on failure).
	Files metric.Int64Counter

	// Frames counts periodograms computed.
	Frames metric.Int64Counter

	// Blocks counts Welch-averaged time blocks emitted.
	Blocks metric.Int64Counter

	// FileDuration tracks wall time spent on one recording, decode included.
	FileDuration metric.Float64Histogram

	// Warnings counts non-fatal per-file problems such as timestamp fallbacks.
	Warnings metric.Int64Counter
}

// durationBuckets spans short test clips to multi-hour recordings (seconds).
var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300,
}

// NewMetrics creates all instruments on mp. Returns an error if any
// instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Files, err = m.Int64Counter("pamguide.files",
		metric.WithDescription("Recordings processed by status."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("pamguide.frames",
		metric.WithDescription("Frame periodograms computed."),
	); err != nil {
		return nil, err
	}
	if met.Blocks, err = m.Int64Counter("pamguide.blocks",
		metric.WithDescription("Welch-averaged time blocks emitted."),
	); err != nil {
		return nil, err
	}
	if met.FileDuration, err = m.Float64Histogram("pamguide.file.duration",
		metric.WithDescription("Processing time per recording."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Warnings, err = m.Int64Counter("pamguide.warnings",
		metric.WithDescription("Non-fatal per-recording warnings."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordFile records the outcome of one recording. kind is the error kind
// for failures and ignored for StatusOK. Nil receivers are a no-op.
func (m *Metrics) RecordFile(ctx context.Context, status, kind string, elapsed time.Duration, frames, blocks, warnings int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("status", status)}
	if status != StatusOK && kind != "" {
		attrs = append(attrs, attribute.String("kind", kind))
	}
	m.Files.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.FileDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
	if frames > 0 {
		m.Frames.Add(ctx, int64(frames))
	}
	if blocks > 0 {
		m.Blocks.Add(ctx, int64(blocks))
	}
	if warnings > 0 {
		m.Warnings.Add(ctx, int64(warnings))
	}
}
