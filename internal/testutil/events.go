package testutil

import (
	"sync"

	"giftwise/internal/gw"
)

// EventRecorder collects events in delivery order.
type EventRecorder struct {
	mu     sync.Mutex
	events []gw.Event
}

// Record is a subscriber callback.
func (r *EventRecorder) Record(e gw.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Notify lets the recorder stand in for a gw.Notifier.
func (r *EventRecorder) Notify(e gw.Event) { r.Record(e) }

// Events returns a copy of the recorded events.
func (r *EventRecorder) Events() []gw.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gw.Event(nil), r.events...)
}

// Count returns how many times e was recorded.
func (r *EventRecorder) Count(e gw.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.events {
		if got == e {
			n++
		}
	}
	return n
}

// Reset forgets everything recorded so far.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
