package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/teamflow/pkg/events"
)

var ErrUnknownEventType = errors.New("unknown event type")

// WatermillEventBus carries every event on events.Topic, tagged with its
// type in the message metadata.
type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	logger        *slog.Logger
	mu            sync.RWMutex
	subscriptions map[events.EventType]EventHandler
}

// Option customizes a WatermillEventBus.
type Option func(*WatermillEventBus)

// WithLogger reports dropped and retried messages to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		eb.logger = logger
	}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) EventBus {
	eb := &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		logger:        slog.New(slog.DiscardHandler),
		subscriptions: make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	return eb
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe starts delivering messages to the registered handlers until ctx
// is cancelled or the bus is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.dispatch(ctx, msg)
		}
	}()

	return nil
}

// dispatch acks messages nobody handles and messages that cannot be decoded,
// so one malformed payload never blocks the stream. Handler failures are
// nacked for redelivery.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, exists := eb.subscriptions[eventType]
	eb.mu.RUnlock()

	if !exists {
		msg.Ack()

		return
	}

	event, err := Decode(eventType, msg.Payload)
	if err != nil {
		eb.logger.WarnContext(ctx, "Dropping undecodable event",
			"event_type", eventType,
			"message_id", msg.UUID,
			"error", err,
		)
		msg.Ack()

		return
	}

	if err := handler(ctx, event); err != nil {
		eb.logger.WarnContext(ctx, "Event handler failed, requesting redelivery",
			"event_type", eventType,
			"message_id", msg.UUID,
			"error", err,
		)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	return errors.Join(eb.publisher.Close(), eb.subscriber.Close())
}

// Decode unmarshals payload into the concrete event struct for eventType.
func Decode(eventType events.EventType, payload []byte) (Event, error) {
	var event Event

	switch eventType {
	case events.WorkflowStartedEvent:
		event = &events.WorkflowStarted{}
	case events.WorkflowStoppedEvent:
		event = &events.WorkflowStopped{}
	case events.ProcessStartedEvent:
		event = &events.ProcessStarted{}
	case events.ProcessCompletedEvent:
		event = &events.ProcessCompleted{}
	case events.ProcessFailedEvent:
		event = &events.ProcessFailed{}
	case events.ProcessStoppedEvent:
		event = &events.ProcessStopped{}
	case events.OptimizationAppliedEvent:
		event = &events.OptimizationApplied{}
	case events.InsightGeneratedEvent:
		event = &events.InsightGenerated{}
	case events.OptimizationCycleCompletedEvent:
		event = &events.OptimizationCycleCompleted{}
	case events.DailyReportGeneratedEvent:
		event = &events.DailyReportGenerated{}
	case events.TeamAlertEvent:
		event = &events.TeamAlert{}
	case events.AlertPlanEmittedEvent:
		event = &events.AlertPlanEmitted{}
	case events.AlertEscalatedEvent:
		event = &events.AlertEscalated{}
	case events.AlertDroppedEvent:
		event = &events.AlertDropped{}
	case events.CrossTeamOptimizationCompletedEvent:
		event = &events.CrossTeamOptimizationCompleted{}
	case events.CrossTeamReportGeneratedEvent:
		event = &events.CrossTeamReportGenerated{}
	case events.TeamAddedEvent:
		event = &events.TeamAdded{}
	case events.TeamRemovedEvent:
		event = &events.TeamRemoved{}
	default:
		return nil, ErrUnknownEventType
	}

	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}

	return event, nil
}
