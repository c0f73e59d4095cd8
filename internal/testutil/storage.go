package testutil

import (
	"testing"

	"giftwise/internal/gw"
	"giftwise/internal/kv"
	"giftwise/internal/records"
)

// Harness is a Storage wired to in-memory collaborators.
type Harness struct {
	Storage *gw.Storage
	Backend *kv.MemoryBackend
	Store   *FailingStore
	Clock   *StubClock
	IDs     *StubIDGenerator
	Events  *EventRecorder
}

// NewHarness builds an uninitialized Storage over a memory backend with the
// "giftwise" namespace and a 10 MiB quota. Every event is recorded.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	return NewHarnessWithQuota(t, gw.MaxStorageBytes)
}

// NewHarnessWithQuota is NewHarness with a custom backing-store quota.
func NewHarnessWithQuota(t *testing.T, quota int64) *Harness {
	t.Helper()

	backend := kv.NewMemoryBackend()
	store := NewFailingStore(kv.NewStore(backend, "giftwise", quota))
	clock := FixedClock()
	ids := NewStubIDGenerator()
	bus := gw.NewEventBus()
	logger := gw.NewNopLogger()

	h := &Harness{
		Storage: gw.NewStorage(
			store,
			records.NewProfileStore(store, bus, logger, clock),
			records.NewHistoryStore(store, bus, logger, clock),
			records.NewSettingsStore(store, bus, logger, clock),
			bus, logger, clock, ids,
		),
		Backend: backend,
		Store:   store,
		Clock:   clock,
		IDs:     ids,
		Events:  &EventRecorder{},
	}
	t.Cleanup(h.Storage.Subscribe(h.Events.Record))
	return h
}
