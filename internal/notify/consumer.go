package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	kafka "github.com/segmentio/kafka-go"
)

// maxRetries is the number of delivery attempts before an event is routed
// to the DLQ. Each attempt adds a short backoff.
const maxRetries = 3

// Consumer reads Events from the notify-outbox Kafka topic, composes the
// corresponding email, and delivers it via a Sender. It commits Kafka
// offsets only after handling a message, providing at-least-once semantics.
//
// On repeated failure an event is forwarded to notify-dlq so the consumer
// can keep making progress without losing the problematic record.
// At-least-once (not exactly-once) is acceptable here: a duplicate email is
// an annoyance, a silently dropped one is a broken promise to the donor.
type Consumer struct {
	reader   *kafka.Reader
	dlq      *kafka.Writer
	composer *Composer
	sender   Sender
}

// NewConsumer creates a Consumer connected to the given Kafka brokers.
func NewConsumer(brokers []string, composer *Composer, sender Sender) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          OutboxTopic,
		GroupID:        "foodbridge-notifier",
		MinBytes:       1,
		MaxBytes:       1 << 20, // 1 MiB
		CommitInterval: 0,       // explicit commits only
		StartOffset:    kafka.LastOffset,
	})

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Consumer{
		reader:   reader,
		dlq:      dlq,
		composer: composer,
		sender:   sender,
	}
}

// Run blocks, consuming events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	log.Printf("notifier: consuming from topic %q", OutboxTopic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// Clean shutdown.
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		if err := c.handle(ctx, m); err != nil {
			// handle already logged the error and sent to DLQ.
			// We still commit so the consumer does not get stuck.
			log.Printf("notifier: routed event key=%s to DLQ: %v", string(m.Key), err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("notifier: commit failed (event may be redelivered): %v", err)
		}
	}
}

// Close releases all Kafka resources.
func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.dlq.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

// handle composes and sends the email for one Kafka message, retrying
// delivery up to maxRetries with backoff. If all attempts fail it writes
// the raw message to the DLQ.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	var ev Event
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		return c.sendToDLQ(ctx, m, fmt.Errorf("unmarshal: %w", err))
	}

	email, err := c.composer.Compose(ctx, ev)
	if err != nil {
		return c.sendToDLQ(ctx, m, fmt.Errorf("compose: %w", err))
	}
	if email == nil {
		log.Printf("notifier: skipping event id=%s type=%s (nothing to send)", ev.ID, ev.Type)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = c.sender.Send(ctx, *email)
		if lastErr == nil {
			log.Printf("notifier: sent id=%s type=%s to=%s (attempt %d)", ev.ID, ev.Type, email.To, attempt)
			return nil
		}

		log.Printf("notifier: attempt %d/%d failed for id=%s: %v", attempt, maxRetries, ev.ID, lastErr)

		if attempt < maxRetries {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return c.sendToDLQ(ctx, m, lastErr)
}

// sendToDLQ writes the original raw Kafka message to the dead-letter topic
// so it can be inspected and replayed without blocking the main consumer.
func (c *Consumer) sendToDLQ(ctx context.Context, original kafka.Message, reason error) error {
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   original.Key,
		Value: original.Value,
	})
	if err != nil {
		log.Printf("notifier: CRITICAL - could not write to DLQ: %v", err)
	}
	return reason
}
