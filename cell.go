package statebox

import (
	"sync"

	"github.com/roach88/statebox/internal/identity"
)

// cell owns the current state value.
//
// Every write tags the value with a version token. Commits allocate a fresh
// token; a restore reinstates the token of the value it brings back, so a
// dispatch can tell whether the value it left is still current.
type cell[S any] struct {
	mu      sync.RWMutex
	value   S
	version uint64
	last    uint64
}

func (c *cell[S]) get() S {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// write describes one commit attempt: the value and version it replaced (or
// would have replaced) and the version current afterwards.
type write[S any] struct {
	prev        S
	prevVersion uint64
	version     uint64
	committed   bool
}

// commit stores r's state if r carries one and it is not identical to the
// current value.
func (c *cell[S]) commit(r Result[S]) write[S] {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := write[S]{prev: c.value, prevVersion: c.version, version: c.version}
	next, ok := r.State()
	if !ok || identity.Same(next, c.value) {
		return w
	}
	c.last++
	c.value = next
	c.version = c.last
	w.version, w.committed = c.version, true
	return w
}

// restore writes prev with its version, bypassing the identity guard, if the
// cell is still at version expected. It reports whether the write happened.
func (c *cell[S]) restore(prev S, prevVersion, expected uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version != expected {
		return false
	}
	c.value = prev
	c.version = prevVersion
	return true
}
