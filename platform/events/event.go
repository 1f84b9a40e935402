// Package events carries the in-process pub/sub bus the modules talk over.
// Dossier lifecycle reactions ride PublishSync so a failed transition can
// abort the caller; notifications ride Publish and never block anyone.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type, e.g. "dossiers.created".
	EventName() string
	// OccurredAt is when the event happened, not when it was handled.
	OccurredAt() time.Time
}

// BaseEvent is embedded by concrete events to satisfy OccurredAt.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a BaseEvent with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of one type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes events to subscribed handlers.
type Bus interface {
	// Publish fans the event out asynchronously. Handler errors are logged
	// by the bus, never returned.
	Publish(ctx context.Context, event Event)

	// PublishSync runs the handlers sequentially and returns the first
	// error, so publishers can treat a handler failure as their own.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers handler for the name returned by Event.EventName.
	Subscribe(eventName string, handler Handler)
}
