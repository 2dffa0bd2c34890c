package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/bookstore/internal/kafka"
	"github.com/dejobratic/bookstore/internal/orders/ports"
	"github.com/dejobratic/bookstore/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus         ports.EventBus
	metrics     *kafka.Metrics
	topicPrefix string
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics, topicPrefix string) *ObservableEventBus {
	return &ObservableEventBus{
		bus:         bus,
		metrics:     metrics,
		topicPrefix: topicPrefix,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderCreated", kafka.EventOrderCreated, orderID, nil,
		func(ctx context.Context) error { return e.bus.PublishOrderCreated(ctx, orderID) })
}

func (e *ObservableEventBus) PublishOrderPaid(ctx context.Context, orderID string) error {
	return e.publish(ctx, "EventBus.PublishOrderPaid", kafka.EventOrderPaid, orderID, nil,
		func(ctx context.Context) error { return e.bus.PublishOrderPaid(ctx, orderID) })
}

func (e *ObservableEventBus) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	return e.publish(ctx, "EventBus.PublishOrderFailed", kafka.EventOrderFailed, orderID,
		[]attribute.KeyValue{attribute.String("failure.reason", reason)},
		func(ctx context.Context) error { return e.bus.PublishOrderFailed(ctx, orderID, reason) })
}

func (e *ObservableEventBus) publish(
	ctx context.Context,
	spanName, event, orderID string,
	extra []attribute.KeyValue,
	fn func(context.Context) error,
) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	topic := e.topicPrefix + event
	telemetry.AddSpanAttributes(span, append([]attribute.KeyValue{
		attribute.String("order.id", orderID),
		attribute.String("event.type", event),
		attribute.String("topic", topic),
	}, extra...)...)

	start := time.Now()
	err := fn(ctx)
	e.metrics.RecordPublish(ctx, topic, time.Since(start).Seconds(), err == nil)

	return finish(span, err)
}
