package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability records gateway request counts and durations through an
// OpenTelemetry meter backed by the Prometheus exporter, so the same
// /metrics endpoint serves both instrument families.
type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	requestCounter  otelmetric.Int64Counter
	requestDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requestCounter, _ := meter.Int64Counter(
		"gateway.requests",
		otelmetric.WithDescription("Number of evaluation service requests"),
	)

	requestDuration, _ := meter.Float64Histogram(
		"gateway.request.duration",
		otelmetric.WithDescription("Evaluation service request duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
	}
}

// RecordRequest records one gateway call with its operation tag and outcome.
func (o *Observability) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("status", status),
	)
	if o.requestCounter != nil {
		o.requestCounter.Add(ctx, 1, attrs)
	}
	if o.requestDuration != nil {
		o.requestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
