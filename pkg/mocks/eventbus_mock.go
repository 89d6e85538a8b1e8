// Package mocks provides testify mocks for teamflow interfaces.
package mocks

import (
	"context"

	"github.com/dukex/teamflow/pkg/eventbus"
	"github.com/dukex/teamflow/pkg/events"
	"github.com/stretchr/testify/mock"
)

// MockEventBus is a mock implementation of eventbus.EventBus interface.
type MockEventBus struct {
	mock.Mock
}

// NewPermissiveEventBus returns a MockEventBus accepting every publish.
func NewPermissiveEventBus() *MockEventBus {
	m := &MockEventBus{}
	m.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	return m
}

func (m *MockEventBus) Publish(ctx context.Context, key string, event eventbus.Event) error {
	args := m.Called(ctx, key, event)

	return args.Error(0)
}

func (m *MockEventBus) Handle(eventType events.EventType, handler eventbus.EventHandler) error {
	args := m.Called(eventType, handler)

	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEventBus) Close() error {
	args := m.Called()

	return args.Error(0)
}

func (m *MockEventBus) GenerateID() string {
	args := m.Called()

	return args.String(0)
}

// Published returns every event passed to Publish, in call order. Call it
// once publishers have settled.
func (m *MockEventBus) Published() []eventbus.Event {
	var published []eventbus.Event

	for _, call := range m.Calls {
		if call.Method == "Publish" {
			published = append(published, call.Arguments.Get(2).(eventbus.Event))
		}
	}

	return published
}

// PublishedTypes returns the type of every published event, in call order.
func (m *MockEventBus) PublishedTypes() []events.EventType {
	var types []events.EventType

	for _, event := range m.Published() {
		types = append(types, event.GetType())
	}

	return types
}

// CountOf reports how many events of eventType were published.
func (m *MockEventBus) CountOf(eventType events.EventType) int {
	count := 0

	for _, published := range m.PublishedTypes() {
		if published == eventType {
			count++
		}
	}

	return count
}
