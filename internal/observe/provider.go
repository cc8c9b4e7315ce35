package observe

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitProvider creates an OpenTelemetry [sdkmetric.MeterProvider] backed by a
// Prometheus exporter and installs it as the global meter provider. The
// returned provider should be shut down on exit:
//
//	mp, err := observe.InitProvider("concento", version)
//	if err != nil { ... }
//	defer mp.Shutdown(ctx)
//
// Metrics registered through the global provider become scrapable via
// promhttp.Handler() on the /metrics endpoint.
func InitProvider(serviceName, serviceVersion string) (*sdkmetric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("observe: create prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: build resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	// A tracer provider without an exporter still yields recording spans, so
	// trace IDs show up in logs for correlation. Nothing to flush on exit.
	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res))
	otel.SetTracerProvider(tp)

	return mp, nil
}
