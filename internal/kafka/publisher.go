package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventOrderCreated = "order.created"
	EventOrderPaid    = "order.paid"
	EventOrderFailed  = "order.failed"
)

// Event is the JSON payload written for every order lifecycle event.
type Event struct {
	Event      string    `json:"event"`
	OrderID    string    `json:"order_id"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes order events to one topic per event type. Messages are
// keyed by order id so events of one order stay on one partition.
type Publisher struct {
	writers map[string]messageWriter
	topics  map[string]string
	now     func() time.Time
}

// NewPublisher creates a writer per topic. Topic names are prefix + event name.
func NewPublisher(brokers []string, topicPrefix string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}

	writers := make(map[string]messageWriter, 3)
	for _, event := range []string{EventOrderCreated, EventOrderPaid, EventOrderFailed} {
		writers[event] = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topicPrefix + event,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}

	return newPublisher(writers, topicPrefix), nil
}

func newPublisher(writers map[string]messageWriter, topicPrefix string) *Publisher {
	topics := make(map[string]string, len(writers))
	for event := range writers {
		topics[event] = topicPrefix + event
	}
	return &Publisher{
		writers: writers,
		topics:  topics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Topic returns the topic name an event is written to.
func (p *Publisher) Topic(event string) string {
	return p.topics[event]
}

func (p *Publisher) PublishOrderCreated(ctx context.Context, orderID string) error {
	return p.publish(ctx, Event{Event: EventOrderCreated, OrderID: orderID, Status: "created"})
}

func (p *Publisher) PublishOrderPaid(ctx context.Context, orderID string) error {
	return p.publish(ctx, Event{Event: EventOrderPaid, OrderID: orderID, Status: "success"})
}

func (p *Publisher) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	return p.publish(ctx, Event{Event: EventOrderFailed, OrderID: orderID, Reason: reason})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	writer, ok := p.writers[event.Event]
	if !ok {
		return fmt.Errorf("kafka: no writer for event %s", event.Event)
	}

	event.OccurredAt = p.now()
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Event, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Time:  event.OccurredAt,
	}
	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.topics[event.Event], err)
	}
	return nil
}

// Close flushes pending messages and closes every writer.
func (p *Publisher) Close() error {
	var errs []error
	for event, writer := range p.writers {
		if err := writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s writer: %w", event, err))
		}
	}
	return errors.Join(errs...)
}
