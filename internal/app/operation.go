package app

import (
	"time"

	"giftwise/internal/gw"
)

// Operation identifies one CLI command or server run in the log.
type Operation struct {
	ID        string
	Name      string
	StartedAt time.Time
	Status    string // "success" or "error"
}

// NewOperation starts an operation with a fresh id.
func NewOperation(name string, ids gw.IDGenerator, clock gw.Clock) *Operation {
	return &Operation{
		ID:        ids.New(),
		Name:      name,
		StartedAt: clock.Now(),
		Status:    "success",
	}
}

// Fail marks the operation as failed.
func (op *Operation) Fail() {
	op.Status = "error"
}

// Elapsed returns how long the operation has been running.
func (op *Operation) Elapsed(clock gw.Clock) time.Duration {
	return clock.Now().Sub(op.StartedAt)
}
