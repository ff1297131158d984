// Package broker provides the Kafka producer used by the outbox relay.
package broker

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"bottleworks/internal/infrastructure/storage/postgres"
	"bottleworks/pkg/logger"
)

// Producer publishes plant events to a Kafka topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{writer: writer}
}

// Compile-time check that Producer can serve the outbox relay.
var _ postgres.OutboxHandler = (*Producer)(nil)

// Handle forwards one outbox message to Kafka. The aggregate id is the
// message key, so events for one account or batch stay ordered within a
// partition.
func (p *Producer) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
			{Key: "aggregate_type", Value: []byte(msg.AggregateType)},
		},
	})
	if err != nil {
		return err
	}

	logger.Debug(ctx, "event published",
		"event_type", msg.EventType,
		"aggregate_id", msg.AggregateID,
	)
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
