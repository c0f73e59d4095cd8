package gw

import (
	"fmt"
	"unicode/utf16"
)

// Usage reports how much of the storage budget the namespace consumes.
type Usage struct {
	Used       int64   `json:"used"`
	Max        int64   `json:"max"`
	Percentage float64 `json:"percentage"` // within [0, 100]
	Formatted  string  `json:"formatted"`
}

// StorageUsage sums the cost of every value in the namespace at two bytes per
// UTF-16 code unit.
func (s *Storage) StorageUsage() (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storageUsage()
}

func (s *Storage) storageUsage() (Usage, error) {
	keys, err := s.store.Keys()
	if err != nil {
		return Usage{}, fmt.Errorf("listing keys: %w", err)
	}

	var used int64
	for _, key := range keys {
		v, _, err := s.store.Get(key)
		if err != nil {
			return Usage{}, fmt.Errorf("reading %s: %w", key, err)
		}
		used += 2 * int64(utf16Len(v))
	}
	return newUsage(used, MaxStorageBytes), nil
}

func newUsage(usedBytes, maxBytes int64) Usage {
	pct := float64(usedBytes) / float64(maxBytes) * 100
	pct = min(max(pct, 0), 100)
	return Usage{
		Used:       usedBytes,
		Max:        maxBytes,
		Percentage: pct,
		Formatted:  fmt.Sprintf("%.2fMB / %.0fMB", float64(usedBytes)/1024/1024, float64(maxBytes)/1024/1024),
	}
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
