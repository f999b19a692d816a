package interfaces

import "context"

// EventPublisher delivers ledger events to a downstream sink.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event any) error
}
