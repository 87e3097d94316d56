package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"compras/internal/core/id"
	"compras/internal/infrastructure/storage/postgres"
)

// EventChannelPrefix prefixes the pub/sub channel of every event type:
// quotation.submitted goes to compras:eventos:quotation.submitted.
const EventChannelPrefix = "compras:eventos:"

// EventChannel returns the channel an event type is published on.
func EventChannel(eventType string) string {
	return EventChannelPrefix + eventType
}

// Envelope is what subscribers receive.
type Envelope struct {
	ID            id.ID           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   id.ID           `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewEnvelope wraps an outbox message.
func NewEnvelope(msg *postgres.OutboxMessage) Envelope {
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       msg.Payload,
		CreatedAt:     msg.CreatedAt,
	}
}

// EventPublisher delivers outbox messages to Redis pub/sub.
type EventPublisher struct {
	rdb *redis.Client
}

var _ postgres.OutboxHandler = (*EventPublisher)(nil)

// NewEventPublisher creates a Redis event publisher.
func NewEventPublisher(rdb *redis.Client) *EventPublisher {
	return &EventPublisher{rdb: rdb}
}

// Handle publishes msg. Having no subscribers is not an error.
func (p *EventPublisher) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	data, err := json.Marshal(NewEnvelope(msg))
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := p.rdb.Publish(ctx, EventChannel(msg.EventType), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.EventType, err)
	}
	return nil
}
