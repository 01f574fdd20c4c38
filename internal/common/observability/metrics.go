package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"fieldsales-workers/internal/common/logger"
)

// Observability mirrors job outcomes into an OpenTelemetry meter exported on
// the default Prometheus registry. The zero value records nothing.
type Observability struct {
	provider *metric.MeterProvider
	outcomes otelmetric.Int64Counter
	latency  otelmetric.Float64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("otel prometheus exporter unavailable", map[string]interface{}{"error": err})
		return &Observability{}
	}
	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)
	obs := &Observability{provider: provider}
	if obs.outcomes, err = meter.Int64Counter("fieldsales.jobs.outcomes",
		otelmetric.WithDescription("Jobs by task type, outcome and error code")); err != nil {
		log.Warn("otel counter unavailable", map[string]interface{}{"error": err})
	}
	if obs.latency, err = meter.Float64Histogram("fieldsales.jobs.latency",
		otelmetric.WithDescription("Job latency by task type and outcome"),
		otelmetric.WithUnit("ms")); err != nil {
		log.Warn("otel histogram unavailable", map[string]interface{}{"error": err})
	}
	return obs
}

// RecordJob records one finished job. errorCode is empty for completed jobs.
func (o *Observability) RecordJob(ctx context.Context, taskType, status, errorCode string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
		attribute.String("error_code", errorCode),
	)
	if o.outcomes != nil {
		o.outcomes.Add(ctx, 1, attrs)
	}
	if o.latency != nil {
		o.latency.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.provider.Shutdown(ctx)
}
