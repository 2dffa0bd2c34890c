package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Callback outcomes recorded on payment_callbacks_total.
const (
	OutcomePaid              = "paid"
	OutcomeDuplicate         = "duplicate"
	OutcomeStatusUpdated     = "status_updated"
	OutcomeStockShortfall    = "stock_shortfall"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeMalformed         = "malformed"
	OutcomeOrderNotFound     = "order_not_found"
	OutcomeInvoiceMismatch   = "invoice_mismatch"
	OutcomeError             = "error"
)

type Metrics struct {
	ordersCreatedTotal    metric.Int64Counter
	orderCreationDuration metric.Float64Histogram
	callbacksTotal        metric.Int64Counter
	callbackDuration      metric.Float64Histogram
	stockDeductedTotal    metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of order creation including the invoice request"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.callbacksTotal, err = meter.Int64Counter(
		"payment_callbacks_total",
		metric.WithDescription("Payment provider callbacks by outcome"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_callbacks_total counter: %w", err)
	}

	m.callbackDuration, err = meter.Float64Histogram(
		"payment_callback_duration_seconds",
		metric.WithDescription("Duration of payment callback handling"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_callback_duration histogram: %w", err)
	}

	m.stockDeductedTotal, err = meter.Int64Counter(
		"books_stock_deducted_total",
		metric.WithDescription("Book copies removed from stock by paid orders"),
		metric.WithUnit("{book}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create books_stock_deducted_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordCallback(ctx context.Context, outcome string, durationSeconds float64) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.callbacksTotal.Add(ctx, 1, attrs)
	m.callbackDuration.Record(ctx, durationSeconds, attrs)
}

func (m *Metrics) RecordStockDeducted(ctx context.Context, units int64) {
	if units <= 0 {
		return
	}
	m.stockDeductedTotal.Add(ctx, units)
}
