package kafka

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events instead of sending them. Used when no brokers are configured.
type NoopEventBus struct {
	logger *slog.Logger
}

func NewNoopEventBus(logger *slog.Logger) *NoopEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopEventBus{logger: logger}
}

func (n *NoopEventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	n.logger.DebugContext(ctx, "event::order_created", "order_id", orderID)
	return nil
}

func (n *NoopEventBus) PublishOrderPaid(ctx context.Context, orderID string) error {
	n.logger.DebugContext(ctx, "event::order_paid", "order_id", orderID)
	return nil
}

func (n *NoopEventBus) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	n.logger.DebugContext(ctx, "event::order_failed", "order_id", orderID, "reason", reason)
	return nil
}
