// Package kv adapts host key-value stores to the namespaced, quota-limited
// string store the record layer writes to.
package kv

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf16"
)

// ErrQuotaExceeded is returned by Store.Set when the write would push the
// namespace past its quota. The previous value is left untouched.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Backend is a raw host key-value primitive. Set must replace the value in a
// single atomic write. Keys returns every key held by the host, including keys
// outside this application's namespace.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// Store is a Backend restricted to keys starting with "<namespace>_" and
// limited to quota bytes, counted at two bytes per UTF-16 code unit of every
// value in the namespace. Keys are not counted, so the quota and the facade's
// storage usage report the same number.
type Store struct {
	mu      sync.Mutex
	backend Backend
	prefix  string
	quota   int64
}

// NewStore wraps backend. A quota of zero or less disables the limit.
func NewStore(backend Backend, namespace string, quota int64) *Store {
	return &Store{
		backend: backend,
		prefix:  namespace + "_",
		quota:   quota,
	}
}

// Namespace returns the key prefix without the trailing underscore.
func (s *Store) Namespace() string {
	return strings.TrimSuffix(s.prefix, "_")
}

func (s *Store) Get(key string) (string, bool, error) {
	return s.backend.Get(s.prefix + key)
}

func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	full := s.prefix + key
	if s.quota > 0 {
		used, err := s.usage()
		if err != nil {
			return err
		}
		prev, ok, err := s.backend.Get(full)
		if err != nil {
			return err
		}
		if ok {
			used -= cost(prev)
		}
		if used+cost(value) > s.quota {
			return fmt.Errorf("%w: writing %s", ErrQuotaExceeded, key)
		}
	}
	return s.backend.Set(full, value)
}

func (s *Store) Remove(key string) error {
	return s.backend.Delete(s.prefix + key)
}

// Keys returns the namespace's keys without the prefix, sorted.
func (s *Store) Keys() ([]string, error) {
	all, err := s.backend.Keys()
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, k := range all {
		if rest, ok := strings.CutPrefix(k, s.prefix); ok {
			keys = append(keys, rest)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Len() (int, error) {
	keys, err := s.Keys()
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Key returns the i-th key in sorted order.
func (s *Store) Key(i int) (string, bool, error) {
	keys, err := s.Keys()
	if err != nil {
		return "", false, err
	}
	if i < 0 || i >= len(keys) {
		return "", false, nil
	}
	return keys[i], true, nil
}

// Usage returns the bytes the namespace currently occupies.
func (s *Store) Usage() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage()
}

func (s *Store) usage() (int64, error) {
	all, err := s.backend.Keys()
	if err != nil {
		return 0, err
	}
	var used int64
	for _, k := range all {
		if !strings.HasPrefix(k, s.prefix) {
			continue
		}
		v, ok, err := s.backend.Get(k)
		if err != nil {
			return 0, err
		}
		if ok {
			used += cost(v)
		}
	}
	return used, nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func cost(value string) int64 {
	return 2 * int64(len(utf16.Encode([]rune(value))))
}
