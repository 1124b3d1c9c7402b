package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type Config struct {
	Enabled     bool
	ServiceName string
}

// Provider owns the process tracer provider. When disabled it hands out a
// no-op provider and Shutdown does nothing.
type Provider struct {
	tp       trace.TracerProvider
	shutdown func(context.Context) error
}

// NewProvider installs an OTLP/HTTP exporter as the global tracer provider.
// The exporter endpoint comes from the standard OTEL_EXPORTER_OTLP_* variables.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		slog.Debug("tracing disabled")
		return &Provider{
			tp:       noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create otlp exporter: %w", err)
	}
	return install(sdktrace.WithBatcher(exp), cfg.ServiceName), nil
}

// NewWithProcessor builds a provider around an explicit span processor.
// It is used by tests and does not touch the global provider.
func NewWithProcessor(sp sdktrace.SpanProcessor, serviceName string) *Provider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sp),
		sdktrace.WithResource(serviceResource(serviceName)),
	)
	return &Provider{tp: tp, shutdown: tp.Shutdown}
}

func install(opt sdktrace.TracerProviderOption, serviceName string) *Provider {
	tp := sdktrace.NewTracerProvider(opt, sdktrace.WithResource(serviceResource(serviceName)))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	slog.Info("tracing enabled", "service", serviceName)
	return &Provider{tp: tp, shutdown: tp.Shutdown}
}

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

func (p *Provider) TracerProvider() trace.TracerProvider {
	return p.tp
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.shutdown == nil {
		return nil
	}
	return p.shutdown(ctx)
}
