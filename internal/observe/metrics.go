// Package observe provides the OpenTelemetry metrics recorded by the
// deck pipeline and the HTTP server, plus the provider setup that exposes
// them to Prometheus.
//
// [Metrics] is always built with [NewMetrics] from an explicit
// [metric.MeterProvider]; tests pass their own to avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all vocabdeck metrics.
const meterName = "codeberg.org/snonux/vocabdeck"

// Metrics holds the metric instruments of the application. All fields are
// safe for concurrent use.
type Metrics struct {
	// SessionDuration tracks the wall time of one deck generation.
	SessionDuration metric.Float64Histogram

	// StageDuration tracks pipeline stages. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// Sessions counts finished generations. Use with attribute:
	//   attribute.String("status", ...)
	Sessions metric.Int64Counter

	// Cards counts cards written to decks.
	Cards metric.Int64Counter

	// Mismatches counts generations where the entry and clip counts differed.
	Mismatches metric.Int64Counter

	// FormatterRequests counts calls to the formatting collaborator. Use with
	// attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	FormatterRequests metric.Int64Counter

	// FormatterDrift counts formatter lines whose front no longer matches
	// the source term.
	FormatterDrift metric.Int64Counter

	// ActiveGenerations tracks generations currently running.
	ActiveGenerations metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...), attribute.Int("status", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// durationBuckets (seconds) cover fast uploads up to long recordings
// passing through ffmpeg.
var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates all instruments using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SessionDuration, err = m.Float64Histogram("vocabdeck.session.duration",
		metric.WithDescription("Wall time of one deck generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("vocabdeck.stage.duration",
		metric.WithDescription("Wall time of a pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("vocabdeck.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Sessions, err = m.Int64Counter("vocabdeck.sessions",
		metric.WithDescription("Finished deck generations by status."),
	); err != nil {
		return nil, err
	}
	if met.Cards, err = m.Int64Counter("vocabdeck.cards",
		metric.WithDescription("Cards written to decks."),
	); err != nil {
		return nil, err
	}
	if met.Mismatches, err = m.Int64Counter("vocabdeck.mismatches",
		metric.WithDescription("Generations where entry and clip counts differed."),
	); err != nil {
		return nil, err
	}
	if met.FormatterRequests, err = m.Int64Counter("vocabdeck.formatter.requests",
		metric.WithDescription("Formatting collaborator calls by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.FormatterDrift, err = m.Int64Counter("vocabdeck.formatter.drift",
		metric.WithDescription("Formatted fronts that drifted from their source term."),
	); err != nil {
		return nil, err
	}

	// Gauges.
	if met.ActiveGenerations, err = m.Int64UpDownCounter("vocabdeck.generations.active",
		metric.WithDescription("Deck generations currently running."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordSession records the outcome of one generation.
func (m *Metrics) RecordSession(ctx context.Context, status string, elapsed time.Duration) {
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.SessionDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordStage records the wall time of a named pipeline stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration) {
	m.StageDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}

// RecordFormatterRequest counts one formatting collaborator call.
func (m *Metrics) RecordFormatterRequest(ctx context.Context, provider, status string) {
	m.FormatterRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}
