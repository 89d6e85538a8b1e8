// Package otelhelper provides distributed tracing for workflow cycles and provider calls.
package otelhelper

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span attribute keys.
const (
	TeamKey       = "teamflow.team"
	ProcessKey    = "teamflow.process"
	InstanceIDKey = "teamflow.instance.id"
	RunKey        = "teamflow.run"
	CycleKey      = "teamflow.cycle"
	AlertIDKey    = "teamflow.alert.id"
	ConfidenceKey = "teamflow.confidence"
)

// ShutdownFunc flushes pending spans and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

type tracerOptions struct {
	version     string
	sampleRatio float64
}

// Option customizes the tracer built by NewTracer.
type Option func(*tracerOptions)

// WithServiceVersion records the running version on every span.
func WithServiceVersion(version string) Option {
	return func(o *tracerOptions) {
		o.version = version
	}
}

// WithSampleRatio keeps roughly ratio of the root traces. Values >= 1 keep all.
func WithSampleRatio(ratio float64) Option {
	return func(o *tracerOptions) {
		o.sampleRatio = ratio
	}
}

// NewTracer exports spans over OTLP/HTTP. The exporter endpoint follows the
// standard OTEL_EXPORTER_OTLP_* environment variables.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string, opts ...Option) (trace.Tracer, ShutdownFunc, error) {
	options := tracerOptions{sampleRatio: 1}
	for _, opt := range opts {
		opt(&options)
	}

	if options.sampleRatio < 0 || options.sampleRatio > 1 {
		return nil, nil, fmt.Errorf("sample ratio %g outside [0, 1]", options.sampleRatio)
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(serviceName)}
	if options.version != "" {
		attrs = append(attrs, semconv.ServiceVersion(options.version))
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(options.sampleRatio)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// Sampler honours the caller's sampling decision and samples new root traces
// by ratio.
//
// nolint:ireturn // sdktrace samplers are interfaces
func Sampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// NoopTracer returns a tracer that records nothing.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NoopTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("teamflow")
}

// nolint:ireturn,spancheck // the caller ends the span
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
