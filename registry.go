package statebox

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Subscriber is notified after every dispatch with the committed state.
//
// Returning dc.Revert() rolls the dispatch back. Returning any other error
// stops the remainder of the pass without rolling back. A panic is recovered
// and treated as such an error, wrapped in ErrSubscriberPanic.
type Subscriber[S any] func(state S, dc *Context[S]) error

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func()

type subscription[S any] struct {
	fn      Subscriber[S]
	removed atomic.Bool
}

// registry keeps subscriptions in registration order.
type registry[S any] struct {
	mu   sync.Mutex
	subs []*subscription[S]
}

func (r *registry[S]) insert(sub *subscription[S]) Unsubscribe {
	r.mu.Lock()
	r.subs = append(r.subs, sub)
	r.mu.Unlock()

	return func() { r.remove(sub) }
}

// remove reports whether this call removed sub.
func (r *registry[S]) remove(sub *subscription[S]) bool {
	if !sub.removed.CompareAndSwap(false, true) {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.Index(r.subs, sub); i >= 0 {
		r.subs = slices.Delete(r.subs, i, i+1)
	}
	return true
}

func (r *registry[S]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *registry[S]) snapshot() []*subscription[S] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.subs)
}

type passOutcome uint8

const (
	passCompleted passOutcome = iota
	passRolledBack
	passAborted
)

// pass is the result of one notification pass.
type pass struct {
	outcome  passOutcome
	notified int
	// index and err identify the subscriber that stopped the pass.
	index int
	err   error
}

// notify calls every subscriber of the current snapshot in order. Subscribers
// removed after the snapshot was taken are skipped. The first error stops the
// pass.
func (r *registry[S]) notify(state S, dc *Context[S]) pass {
	var p pass
	for i, sub := range r.snapshot() {
		if sub.removed.Load() {
			continue
		}
		p.notified++
		if err := call(sub.fn, state, dc); err != nil {
			p.index, p.err = i, err
			if IsRollback(err) {
				p.outcome = passRolledBack
			} else {
				p.outcome = passAborted
			}
			return p
		}
	}
	return p
}

// call runs fn and turns a panic into an error.
func call[S any](fn Subscriber[S], state S, dc *Context[S]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSubscriberPanic, r)
		}
	}()
	return fn(state, dc)
}
