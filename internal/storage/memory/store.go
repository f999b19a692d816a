package memory

import (
	"context" // request-scoped context, unused by the in-memory sink
	"sync"    // guards the events slice
	"time"

	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
)

// Event is a published ledger event as held by the in-memory sink.
type Event struct {
	Topic      string
	Payload    any
	ReceivedAt time.Time
}

// EventStore is an in-memory implementation of interfaces.EventPublisher.
// It keeps every event it receives and is safe for concurrent publishers.
type EventStore struct {
	mu     sync.Mutex // protects events
	events []Event    // events in the order they were published
}

// NewEventStore creates and returns an empty EventStore
func NewEventStore() *EventStore {
	return &EventStore{
		events: make([]Event, 0),
	}
}

// Publish appends the event. It always succeeds.
func (m *EventStore) Publish(ctx context.Context, topic string, event any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, Event{Topic: topic, Payload: event, ReceivedAt: time.Now()})
	return nil
}

// Events returns a copy of every event received so far.
func (m *EventStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	// copy so callers can't modify internal state
	copied := make([]Event, len(m.events))
	copy(copied, m.events)
	return copied
}

// EventsByTopic returns the events published on topic, oldest first.
func (m *EventStore) EventsByTopic(topic string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Event
	for _, e := range m.events {
		if e.Topic == topic {
			result = append(result, e)
		}
	}
	return result
}

// Compile-time check: ensure EventStore implements EventPublisher
var _ interfaces.EventPublisher = (*EventStore)(nil)
