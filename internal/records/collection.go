// Package records persists the profiles, gift-history and settings records
// through the codec into a backing store.
package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"giftwise/internal/codec"
	"giftwise/internal/gw"
)

// ErrEncode is returned by Save when a record cannot be serialised.
var ErrEncode = errors.New("encoding record")

// collection persists a slice of T as an envelope
// {<field>: [...], updatedAt, checksum} under a single key.
type collection[T any] struct {
	store    gw.BackingStore
	notifier gw.Notifier
	logger   gw.Logger
	clock    gw.Clock
	key      string
	field    string
	event    gw.Event
}

func (c *collection[T]) load() ([]T, bool, error) {
	raw, ok, err := c.store.Get(c.key)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", c.key, err)
	}
	if !ok {
		return []T{}, false, nil
	}

	var env map[string]json.RawMessage
	if !codec.Deobfuscate(raw, &env) {
		c.logger.Warn("discarding undecodable record", "key", c.key)
		return []T{}, false, nil
	}

	var items []T
	if err := json.Unmarshal(env[c.field], &items); err != nil || items == nil {
		c.logger.Warn("discarding record without a valid collection", "key", c.key, "field", c.field)
		return []T{}, false, nil
	}

	var sum string
	if err := json.Unmarshal(env["checksum"], &sum); err == nil && sum != "" && !codec.Verify(items, sum) {
		c.logger.Warn("checksum mismatch", "key", c.key, "stored", sum, "computed", codec.Checksum(items))
	}
	return items, true, nil
}

func (c *collection[T]) save(items []T) error {
	if items == nil {
		items = []T{}
	}
	env := map[string]any{
		c.field:     items,
		"updatedAt": c.clock.Now().UTC().Truncate(time.Millisecond),
		"checksum":  codec.Checksum(items),
	}
	encoded, ok := codec.Obfuscate(env)
	if !ok {
		return fmt.Errorf("%w: %s", ErrEncode, c.key)
	}
	if err := c.store.Set(c.key, encoded); err != nil {
		c.logger.Error("writing record failed", "key", c.key, "error", err)
		return fmt.Errorf("writing %s: %w", c.key, err)
	}
	c.notifier.Notify(c.event)
	return nil
}
