package monobank

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records latency and outcome of calls to the payment provider.
type Metrics struct {
	requestDuration metric.Float64Histogram
	keyFetches      metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"payment_gateway_request_duration_seconds",
		metric.WithDescription("Payment provider request duration including retries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_gateway_request_duration histogram: %w", err)
	}

	m.keyFetches, err = meter.Int64Counter(
		"payment_signing_key_fetches_total",
		metric.WithDescription("Signing key fetches from the payment provider"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_signing_key_fetches_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordRequest(ctx context.Context, operation string, durationSeconds float64, success bool) {
	if m == nil {
		return
	}
	m.requestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", outcome(success)),
	))
}

func (m *Metrics) RecordKeyFetch(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	m.keyFetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", outcome(success)),
	))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
