// Package events publishes observation lifecycle events to RabbitMQ
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types, also used as routing keys
const (
	ObservationCreated   = "observation.created"
	ObservationCompleted = "observation.completed"
	ObservationDeleted   = "observation.deleted"
	RecordAdded          = "record.added"
	RecordUpdated        = "record.updated"
	OperatorsChanged     = "operators.changed"
)

// Event is a change notification for other services and instances
type Event struct {
	Type          string    `json:"type"`
	ObservationID uuid.UUID `json:"observation_id,omitempty"`
	RecordID      uuid.UUID `json:"record_id,omitempty"`
	ActorID       uuid.UUID `json:"actor_id,omitempty"`
	Source        string    `json:"source,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// New creates an event stamped with the current time
func New(eventType string, observationID uuid.UUID) Event {
	return Event{
		Type:          eventType,
		ObservationID: observationID,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher delivers events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Subscriber receives events published by any instance
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(context.Context, Event) error) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
