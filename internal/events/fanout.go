package events

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
)

// Fanout publishes every event to each of its sinks in order. A failing sink
// does not stop delivery to the others; all failures are joined.
type Fanout []interfaces.EventPublisher

// Publish delivers event to every sink.
func (f Fanout) Publish(ctx context.Context, topic string, event any) error {
	var errs []error
	for i, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, topic, event); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ interfaces.EventPublisher = Fanout(nil)
