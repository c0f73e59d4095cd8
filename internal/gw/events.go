package gw

import "sync"

// Event names a change notification.
type Event string

const (
	EventInitialized     Event = "initialized"
	EventProfilesUpdated Event = "profiles-updated"
	EventHistoryUpdated  Event = "history-updated"
	EventSettingsUpdated Event = "settings-updated"
	EventDataCleared     Event = "data-cleared"
)

// Notifier publishes events. Record stores notify after every successful save.
type Notifier interface {
	Notify(e Event)
}

type subscription struct {
	id int
	fn func(Event)
}

// EventBus is an in-process Notifier that fans events out to subscribers in
// subscription order, synchronously on the notifying goroutine.
type EventBus struct {
	mu   sync.Mutex
	next int
	subs []subscription
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is a no-op.
func (b *EventBus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	id := b.next
	b.subs = append(b.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify delivers e to every current subscriber.
func (b *EventBus) Notify(e Event) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}
