package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafka "github.com/segmentio/kafka-go"
)

const (
	// OutboxTopic is where producers publish notification events.
	OutboxTopic = "notify-outbox"

	// DLQTopic is where events that exhaust all delivery retries are written
	// so they can be inspected and replayed manually without blocking the
	// main consumer.
	DLQTopic = "notify-dlq"
)

// Dispatcher accepts a notification event for eventual delivery. Callers
// treat a dispatch error as loggable, never as a reason to fail or revert
// the operation that produced the event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) error
}

// Outbox publishes events to the notify-outbox Kafka topic. It is the
// production Dispatcher; one Outbox is created at startup and shared.
type Outbox struct {
	writer *kafka.Writer
}

// NewOutbox creates an Outbox connected to the given Kafka brokers.
func NewOutbox(brokers []string) *Outbox {
	return &Outbox{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        OutboxTopic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Dispatch publishes ev to the outbox topic, keyed by event ID.
func (o *Outbox) Dispatch(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return o.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.ID),
		Value: value,
	})
}

// Close releases the Kafka writer.
func (o *Outbox) Close() error {
	return o.writer.Close()
}

// LogDispatcher logs events instead of publishing them. It stands in for
// the Outbox when no Kafka brokers are configured (local development).
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, ev Event) error {
	log.Printf("notify: (no brokers configured) dropping event id=%s type=%s", ev.ID, ev.Type)
	return nil
}
