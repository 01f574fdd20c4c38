package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"fieldsales-workers/internal/common/config"
	"fieldsales-workers/internal/common/logger"
)

// SetupTracing installs a global tracer provider that batches job spans to an
// OTLP collector. Without an endpoint the global no-op provider stays in place
// and the returned shutdown does nothing.
func SetupTracing(ctx context.Context, serviceName string, cfg config.TracingConfig, log logger.Logger) func(context.Context) error {
	noop := func(context.Context) error { return nil }
	if cfg.Endpoint == "" {
		return noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		log.Warn("otel trace exporter unavailable", map[string]interface{}{"error": err})
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		log.Warn("otel resource incomplete", map[string]interface{}{"error": err})
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	log.Info("tracing enabled", map[string]interface{}{"endpoint": cfg.Endpoint, "sampleRatio": cfg.SampleRatio})
	return provider.Shutdown
}
