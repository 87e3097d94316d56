package domain

import (
	"context"

	"compras/internal/core/id"
)

// Event is a domain event written to the outbox in the same transaction as
// the change it describes.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher stores events for later relay.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
