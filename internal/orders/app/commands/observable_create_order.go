package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/metrics"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCreateOrderHandler struct {
	handler CreateOrderHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCreateOrderHandler(handler CreateOrderHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCreateOrderHandler {
	return &ObservableCreateOrderHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*CreateOrderResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "CreateOrderCommand.Handle")
	defer span.End()

	start := time.Now()
	var success bool
	defer func() {
		o.metrics.RecordOrderCreationDuration(ctx, time.Since(start).Seconds())
		o.metrics.RecordOrderCreated(ctx, success)
	}()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.owner_id", cmd.OwnerID),
		attribute.Int("order.items", len(cmd.Items)),
	)

	o.logger.InfoContext(ctx, "creating order",
		"owner_id", cmd.OwnerID,
		"items", len(cmd.Items),
	)

	result, err := o.handler.Handle(ctx, cmd)
	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.logger.ErrorContext(ctx, "failed to create order",
			"error", err,
			"owner_id", cmd.OwnerID,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", result.Order.ID),
		attribute.Int64("order.full_price", result.Order.FullPrice()),
		attribute.String("order.status", string(result.Order.Status)),
	)

	o.logger.InfoContext(ctx, "order created successfully",
		"order_id", result.Order.ID,
		"owner_id", result.Order.OwnerID,
		"full_price", result.Order.FullPrice(),
	)

	success = true
	telemetry.SetSpanSuccess(span)

	return result, nil
}
