package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/bookstore/internal/orders/domain"
	"github.com/dejobratic/bookstore/internal/orders/metrics"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePaymentCallbackHandler struct {
	handler PaymentCallbackHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservablePaymentCallbackHandler(handler PaymentCallbackHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservablePaymentCallbackHandler {
	return &ObservablePaymentCallbackHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservablePaymentCallbackHandler) Handle(ctx context.Context, cmd HandlePaymentCallbackCommand) (*CallbackResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "HandlePaymentCallbackCommand.Handle")
	defer span.End()

	start := time.Now()
	result, err := o.handler.Handle(ctx, cmd)
	outcome := callbackOutcome(result, err)
	o.metrics.RecordCallback(ctx, outcome, time.Since(start).Seconds())

	telemetry.AddSpanAttributes(span, attribute.String("callback.outcome", outcome))

	if err != nil {
		telemetry.RecordSpanError(span, err)
		if errors.Is(err, domain.ErrGateway) {
			o.logger.ErrorContext(ctx, "payment callback could not be verified", "error", err)
		} else {
			o.logger.WarnContext(ctx, "payment callback rejected",
				"error", err,
				"outcome", outcome,
			)
		}
		return nil, err
	}

	o.metrics.RecordStockDeducted(ctx, result.UnitsDeducted)
	if result.StockDeducted {
		telemetry.AddSpanEvent(span, "stock.deducted", attribute.Int64("stock.units", result.UnitsDeducted))
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", result.OrderID),
		attribute.String("order.previous_status", string(result.PreviousStatus)),
		attribute.String("order.status", string(result.Status)),
		attribute.Bool("stock.deducted", result.StockDeducted),
	)

	if result.FailureReason != "" {
		o.logger.ErrorContext(ctx, "paid order could not be fulfilled",
			"order_id", result.OrderID,
			"reason", result.FailureReason,
		)
	} else {
		o.logger.InfoContext(ctx, "payment callback applied",
			"order_id", result.OrderID,
			"previous_status", result.PreviousStatus,
			"status", result.Status,
			"stock_deducted", result.StockDeducted,
		)
	}

	telemetry.SetSpanSuccess(span)
	return result, nil
}

func callbackOutcome(result *CallbackResult, err error) string {
	switch {
	case errors.Is(err, domain.ErrSignatureMismatch):
		return metrics.OutcomeSignatureMismatch
	case errors.Is(err, domain.ErrMalformedCallback):
		return metrics.OutcomeMalformed
	case errors.Is(err, domain.ErrOrderNotFound):
		return metrics.OutcomeOrderNotFound
	case errors.Is(err, domain.ErrInvoiceMismatch):
		return metrics.OutcomeInvoiceMismatch
	case err != nil:
		return metrics.OutcomeError
	case result.FailureReason != "":
		return metrics.OutcomeStockShortfall
	case result.StockDeducted:
		return metrics.OutcomePaid
	case result.Duplicate():
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeStatusUpdated
	}
}
