// Package observe provides application-wide observability primitives for
// Concento: OpenTelemetry metrics, tracing, structured logging helpers, and
// HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Concento metrics.
const meterName = "github.com/evalden/concento"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per collaborator call ---

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// LLMDuration tracks generative-language call latency.
	LLMDuration metric.Float64Histogram

	// TTSDuration tracks text-to-speech synthesis latency.
	TTSDuration metric.Float64Histogram

	// TurnDuration tracks end-to-end turn handling latency. Use with
	// attribute.String("route", ...).
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts handled turns. Use with attributes:
	//   attribute.String("route", ...), attribute.String("status", ...)
	Turns metric.Int64Counter

	// ProviderErrors counts collaborator failures. Use with attribute:
	//   attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// SessionEvictions counts sessions removed by TTL or LRU pressure.
	SessionEvictions metric.Int64Counter

	// ConsentRecords counts captured consent records.
	ConsentRecords metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// hosted-model latencies; transcription and chat calls routinely run past a
// second.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("concento.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("concento.llm.duration",
		metric.WithDescription("Latency of generative-language calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("concento.tts.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("concento.turn.duration",
		metric.WithDescription("End-to-end turn handling latency by route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Turns, err = m.Int64Counter("concento.turns",
		metric.WithDescription("Total handled turns by route and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("concento.provider.errors",
		metric.WithDescription("Total collaborator failures by kind."),
	); err != nil {
		return nil, err
	}
	if met.SessionEvictions, err = m.Int64Counter("concento.session.evictions",
		metric.WithDescription("Total sessions evicted by TTL or LRU pressure."),
	); err != nil {
		return nil, err
	}
	if met.ConsentRecords, err = m.Int64Counter("concento.consent.records",
		metric.WithDescription("Total consent records captured."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("concento.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

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

// ObserveSessionCount registers an observable gauge that samples the number
// of resident sessions via count on every metrics collection.
func ObserveSessionCount(mp metric.MeterProvider, count func(ctx context.Context) (int, error)) error {
	m := mp.Meter(meterName)
	gauge, err := m.Int64ObservableGauge("concento.sessions.active",
		metric.WithDescription("Number of resident sessions."),
	)
	if err != nil {
		return err
	}
	_, err = m.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		n, err := count(ctx)
		if err != nil {
			return err
		}
		o.ObserveInt64(gauge, int64(n))
		return nil
	}, gauge)
	return err
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn records one handled turn with its end-to-end duration.
// m may be nil, in which case the call is a no-op.
func (m *Metrics) RecordTurn(ctx context.Context, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Turns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
		attribute.String("status", status),
	))
	m.TurnDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("route", route)))
}

// RecordProviderError counts one collaborator failure of the given kind
// ("llm", "stt", or "tts"). m may be nil.
func (m *Metrics) RecordProviderError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
