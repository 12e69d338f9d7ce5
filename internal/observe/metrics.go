// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, a Prometheus exporter bridge, and HTTP middleware
// for the admin endpoints.
//
// Metrics are recorded through the OpenTelemetry Metrics API and scraped via
// the standard /metrics endpoint set up by [InitProvider]. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/bwyatt92/Muninn---Voice-Assistant"

// Metrics holds all OpenTelemetry metric instruments for the assistant.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks the delay between end of speech and the final
	// transcript.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// --- Counters ---

	// TranscriptsProcessed counts final transcripts handled by the dialogue
	// driver. Use with attribute:
	//   attribute.Bool("corrected", ...)
	TranscriptsProcessed metric.Int64Counter

	// IntentsClassified counts classification outcomes. Use with attributes:
	//   attribute.String("kind", ...), attribute.String("method", ...)
	IntentsClassified metric.Int64Counter

	// ResolverMisses counts fragments that failed to resolve to a family
	// member.
	ResolverMisses metric.Int64Counter

	// WizardOutcomes counts guided recording flows. Use with attribute:
	//   attribute.String("outcome", "completed"|"cancelled")
	WizardOutcomes metric.Int64Counter

	// RecordsSaved counts recordings persisted to the store. Use with
	// attribute:
	//   attribute.String("category", ...)
	RecordsSaved metric.Int64Counter

	// --- Session instruments ---

	// SessionTurns tracks how many commands each conversation ran before
	// going back to sleep.
	SessionTurns metric.Int64Histogram

	// ActiveSessions tracks the number of live conversations (0 or 1 in the
	// single-session deployment; the gauge keeps dashboards honest anyway).
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks admin endpoint latency. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// voice-pipeline latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// turnBuckets defines bucket boundaries for commands per conversation.
var turnBuckets = []float64{1, 2, 3, 4, 5, 8, 13}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("muninn.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("muninn.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TranscriptsProcessed, err = m.Int64Counter("muninn.transcripts.processed",
		metric.WithDescription("Total final transcripts handled, by correction status."),
	); err != nil {
		return nil, err
	}
	if met.IntentsClassified, err = m.Int64Counter("muninn.intents.classified",
		metric.WithDescription("Total intent classifications by kind and method."),
	); err != nil {
		return nil, err
	}
	if met.ResolverMisses, err = m.Int64Counter("muninn.resolver.misses",
		metric.WithDescription("Total fragments that failed to resolve to a family member."),
	); err != nil {
		return nil, err
	}
	if met.WizardOutcomes, err = m.Int64Counter("muninn.wizard.outcomes",
		metric.WithDescription("Total guided recording flows by outcome."),
	); err != nil {
		return nil, err
	}
	if met.RecordsSaved, err = m.Int64Counter("muninn.records.saved",
		metric.WithDescription("Total recordings persisted, by category."),
	); err != nil {
		return nil, err
	}

	// Session instruments.
	if met.SessionTurns, err = m.Int64Histogram("muninn.session.turns",
		metric.WithDescription("Commands executed per conversation."),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("muninn.active_sessions",
		metric.WithDescription("Number of live conversations."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("muninn.http.request.duration",
		metric.WithDescription("Admin endpoint latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTranscript records one handled final transcript.
func (m *Metrics) RecordTranscript(ctx context.Context, corrected bool) {
	m.TranscriptsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("corrected", corrected)),
	)
}

// RecordIntent records one classification outcome.
func (m *Metrics) RecordIntent(ctx context.Context, kind, method string) {
	m.IntentsClassified.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("method", method),
		),
	)
}

// RecordResolverMiss records one fragment that failed to resolve.
func (m *Metrics) RecordResolverMiss(ctx context.Context) {
	m.ResolverMisses.Add(ctx, 1)
}

// RecordWizardOutcome records one finished guided recording flow.
func (m *Metrics) RecordWizardOutcome(ctx context.Context, outcome string) {
	m.WizardOutcomes.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}

// RecordSaved records one persisted recording.
func (m *Metrics) RecordSaved(ctx context.Context, category string) {
	m.RecordsSaved.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)),
	)
}
