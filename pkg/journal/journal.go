// Package journal records every published event for later inspection.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
)

const DefaultRecentLimit = 50

var ErrUnsupportedEvent = errors.New("event has no envelope")

// Entry is one recorded event.
type Entry struct {
	ID        string           `json:"id"`
	Type      events.EventType `json:"type"`
	Team      string           `json:"team"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload"`
}

// Journal stores entries and returns the most recent ones first.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

type envelope interface {
	Base() events.BaseEvent
}

// NewEntry captures event and its JSON payload.
func NewEntry(event eventbus.Event) (Entry, error) {
	based, ok := event.(envelope)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, event.GetType())
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	base := based.Base()

	return Entry{
		ID:        base.ID,
		Type:      event.GetType(),
		Team:      base.Team,
		Timestamp: base.Timestamp,
		Payload:   payload,
	}, nil
}

// Attach registers a handler for every event type that appends to j.
// Journal failures are logged and the message is still acknowledged.
func Attach(subscriber eventbus.EventSubscriber, j Journal, logger *slog.Logger) error {
	logger = logger.With("module", "journal")

	handler := func(ctx context.Context, event interface{}) error {
		published, ok := event.(eventbus.Event)
		if !ok {
			logger.WarnContext(ctx, "Ignoring unexpected event", "event", fmt.Sprintf("%T", event))

			return nil
		}

		entry, err := NewEntry(published)
		if err != nil {
			logger.WarnContext(ctx, "Failed to journal event", "event_type", published.GetType(), "error", err)

			return nil
		}

		if err := j.Append(ctx, entry); err != nil {
			logger.ErrorContext(ctx, "Failed to journal event", "event_type", entry.Type, "event_id", entry.ID, "error", err)
		}

		return nil
	}

	for _, eventType := range events.AllTypes {
		if err := subscriber.Handle(eventType, handler); err != nil {
			return fmt.Errorf("failed to register journal handler for %s: %w", eventType, err)
		}
	}

	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}

	return limit
}
