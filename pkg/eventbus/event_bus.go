// Package eventbus provides event-driven communication infrastructure for team workflows.
package eventbus

import (
	"context"
	"log/slog"

	"github.com/dukex/teamflow/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

type EventHandler func(ctx context.Context, event interface{}) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}

// Emit publishes event and logs a failure instead of returning it. A nil
// publisher drops the event.
func Emit(ctx context.Context, publisher EventPublisher, logger *slog.Logger, key string, event Event) {
	if publisher == nil {
		return
	}

	if err := publisher.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"key", key,
			"error", err,
		)
	}
}
