package observe_test

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/evalden/concento/internal/observe"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	mp := sdkmetric.NewMeterProvider()
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	if m.STTDuration == nil || m.LLMDuration == nil || m.TTSDuration == nil {
		t.Fatal("latency histograms not initialised")
	}
	if m.Turns == nil || m.ProviderErrors == nil || m.SessionEvictions == nil {
		t.Fatal("counters not initialised")
	}
	if m.HTTPRequestDuration == nil {
		t.Fatal("HTTP histogram not initialised")
	}
	if err := observe.ObserveSessionCount(mp, func(context.Context) (int, error) { return 3, nil }); err != nil {
		t.Fatalf("ObserveSessionCount: %v", err)
	}
}

func TestRecordTurn_NilReceiver(t *testing.T) {
	t.Parallel()

	var m *observe.Metrics
	// Must not panic.
	m.RecordTurn(context.Background(), "answer-qa", "ok", time.Second)
	m.RecordProviderError(context.Background(), "llm")
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	t.Parallel()

	a := observe.DefaultMetrics()
	b := observe.DefaultMetrics()
	if a != b {
		t.Fatal("DefaultMetrics returned different instances")
	}
}
