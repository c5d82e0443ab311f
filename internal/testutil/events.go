package testutil

import (
	"context"
	"sync"

	"rentals/pkg/events"
)

// EventRecorder is an events.Publisher that keeps published events in memory.
// A non-nil Err fails every publish.
type EventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	Err    error
}

func (r *EventRecorder) Publish(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *EventRecorder) Close() error { return nil }

func (r *EventRecorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the event types in publish order.
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}
