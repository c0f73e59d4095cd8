package testutil

import (
	"sync"

	"giftwise/internal/gw"
)

// FailingStore wraps a BackingStore and fails writes to chosen keys.
type FailingStore struct {
	gw.BackingStore

	mu       sync.Mutex
	failSet  map[string]error
	failRead error
}

func NewFailingStore(inner gw.BackingStore) *FailingStore {
	return &FailingStore{BackingStore: inner, failSet: map[string]error{}}
}

// FailSet makes every Set of key return err until cleared with a nil err.
func (f *FailingStore) FailSet(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failSet, key)
		return
	}
	f.failSet[key] = err
}

// FailReads makes every Get return err until cleared with a nil err.
func (f *FailingStore) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = err
}

func (f *FailingStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	err := f.failRead
	f.mu.Unlock()
	if err != nil {
		return "", false, err
	}
	return f.BackingStore.Get(key)
}

func (f *FailingStore) Set(key, value string) error {
	f.mu.Lock()
	err := f.failSet[key]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.BackingStore.Set(key, value)
}
