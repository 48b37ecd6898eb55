// Package events is the in-process event bus the modules use to react to committed
// changes without importing each other.
package events

import (
	"context"
	"time"
)

// Event is published on the bus after the change it describes has been committed.
type Event interface {
	// EventName is the subscription key.
	EventName() string
	OccurredAt() time.Time
}

// BaseEvent carries the publish time; domain events embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps an event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler reacts to one or more event names. Modules switch on the concrete type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// Bus fans events out to the handlers subscribed to their name.
type Bus interface {
	// Publish returns immediately; handlers run on a context detached from ctx.
	Publish(ctx context.Context, event Event)
	// PublishSync runs every handler and joins their errors.
	PublishSync(ctx context.Context, event Event) error
	Subscribe(eventName string, handler Handler)
}
