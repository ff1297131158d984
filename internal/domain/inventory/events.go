package inventory

import (
	"context"

	"bottleworks/internal/core/id"
)

// Event types emitted by the core. Consumers (chat-channel integration,
// dashboards) subscribe downstream of the outbox relay.
const (
	EventStockBelowThreshold = "stock.below_threshold"
	EventBatchCompleted      = "batch.completed"
	EventBatchCancelled      = "batch.cancelled"
)

// Event is a domain event destined for the transactional outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher writes events inside the ambient transaction so they commit
// or roll back together with the stock postings that caused them.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher discards events. Used in tests and tools that run without
// an outbox.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event Event) error { return nil }
