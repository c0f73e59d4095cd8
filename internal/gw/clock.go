package gw

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// ULIDGenerator produces lowercase ULIDs: a millisecond timestamp followed by
// a random suffix, sortable by creation time.
type ULIDGenerator struct{}

func (ULIDGenerator) New() string { return strings.ToLower(ulid.Make().String()) }

// UUIDGenerator produces random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) New() string { return uuid.New().String() }

// stamp returns the clock's current time in the precision persisted records keep.
func stamp(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Millisecond)
}

// isoMillis is the textual timestamp layout used for plain (non-JSON) keys.
const isoMillis = "2006-01-02T15:04:05.000Z"
