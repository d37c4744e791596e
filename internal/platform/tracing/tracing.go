// Package tracing installs the process-wide OpenTelemetry tracer provider.
// Packages create spans with otel.Tracer and never see the provider.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const serviceName = "agegate"

// Shutdown flushes buffered spans.
type Shutdown func(ctx context.Context) error

// Setup registers a tracer provider sampling ratio of root spans and writing
// finished spans as JSON to w. A ratio of zero leaves the global no-op
// provider in place.
func Setup(w io.Writer, ratio float64) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if ratio <= 0 {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	tp := NewProvider(sdktrace.NewBatchSpanProcessor(exporter), ratio)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// NewProvider builds a provider around one span processor.
func NewProvider(processor sdktrace.SpanProcessor, ratio float64) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)
}
