package statebox

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces dispatch IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 dispatch IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a hyphenated UUIDv7. It panics if the system random source
// fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Clock issues dispatch sequence numbers. Dispatches take a number when they
// start, so seq order is start order.
type Clock interface {
	Next() int64
}

// LogicalClock is the default Clock: an atomic counter whose first value is 1.
type LogicalClock struct {
	seq atomic.Int64
}

// Next increments and returns the sequence number.
func (c *LogicalClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *LogicalClock) Current() int64 {
	return c.seq.Load()
}
