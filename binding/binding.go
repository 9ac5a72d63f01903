// Package binding connects a statebox store to a render loop.
//
// A Binding holds the projection a view renders from. It subscribes once,
// recomputes the projection after every dispatch and calls onChange only when
// the projection actually changed. It makes no assumptions about how or when
// the view renders.
package binding

import (
	"sync"

	"github.com/roach88/statebox"
	"github.com/roach88/statebox/internal/identity"
)

// Source is the part of a store a Binding needs. *statebox.Store satisfies it.
type Source[S any] interface {
	statebox.Reader[S]
	Subscribe(fn statebox.Subscriber[S]) statebox.Unsubscribe
}

// Binding tracks one projection of a store.
//
// Thread-safety: safe for concurrent use.
type Binding[S any] struct {
	src      Source[S]
	sel      statebox.Selector[S]
	onChange func(props any)

	mu          sync.Mutex
	props       any
	closed      bool
	unsubscribe statebox.Unsubscribe
}

// Bind computes the initial projection and subscribes to src. onChange may be
// nil.
func Bind[S any](src Source[S], sel statebox.Selector[S], onChange func(props any)) *Binding[S] {
	b := &Binding[S]{
		src:      src,
		sel:      sel,
		onChange: onChange,
		props:    src.Select(sel),
	}
	unsubscribe := src.Subscribe(b.check)

	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
	return b
}

// Props returns the last computed projection.
func (b *Binding[S]) Props() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.props
}

// Close unsubscribes. Notifications that arrive after Close are ignored.
// Close is idempotent.
func (b *Binding[S]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubscribe := b.unsubscribe
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Closed reports whether Close was called.
func (b *Binding[S]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Binding[S]) check(_ S, _ *statebox.Context[S]) error {
	next := b.src.Select(b.sel)

	b.mu.Lock()
	if b.closed || ShallowEqual(b.props, next) {
		b.mu.Unlock()
		return nil
	}
	b.props = next
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(next)
	}
	return nil
}

// ShallowEqual compares two projections. Record projections
// (map[string]any) are equal when they have the same keys and every value is
// identical; anything else is compared by identity.
func ShallowEqual(a, b any) bool {
	ma, aok := a.(map[string]any)
	mb, bok := b.(map[string]any)
	if !aok || !bok {
		return identity.Same(a, b)
	}
	if len(ma) != len(mb) {
		return false
	}
	for k, va := range ma {
		vb, ok := mb[k]
		if !ok || !identity.Same(va, vb) {
			return false
		}
	}
	for k := range mb {
		if _, ok := ma[k]; !ok {
			return false
		}
	}
	return true
}
