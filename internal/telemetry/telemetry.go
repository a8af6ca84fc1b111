// Package telemetry installs the OpenTelemetry tracer provider and W3C
// propagators used by the prediction client's otelhttp transport.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kamilpajak/heartrisk/internal/config"
)

// Options selects the exporter and sampling.
type Options struct {
	Enabled     bool
	Endpoint    string // OTLP gRPC collector, host:port
	Insecure    bool
	SampleRatio float64
	Service     string
	Version     string
}

// Shutdown flushes and stops tracing.
type Shutdown func(context.Context) error

// FromConfig maps the trace settings of cfg to Options.
func FromConfig(cfg config.Config, version string) Options {
	return Options{
		Enabled:     cfg.TraceEnabled,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.TraceInsecure,
		SampleRatio: cfg.TraceSample,
		Service:     "heartrisk",
		Version:     version,
	}
}

// Init sets the global propagators and, when tracing is enabled, a tracer
// provider exporting to the OTLP collector. The returned Shutdown is never nil.
func Init(ctx context.Context, opts Options) (Shutdown, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if !opts.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(opts.Endpoint)}
	if opts.Insecure {
		grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, grpcOpts...)
	if err != nil {
		return func(context.Context) error { return nil }, fmt.Errorf("create otlp exporter: %w", err)
	}

	tp := NewProvider(exporter, opts)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// NewProvider builds a batching tracer provider around exporter.
func NewProvider(exporter sdktrace.SpanExporter, opts Options) *sdktrace.TracerProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", opts.Service),
		attribute.String("service.version", opts.Version),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))),
	)
}
