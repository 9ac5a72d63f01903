package statebox

import (
	"context"
	"sync"
)

// Awaitable is anything that signals completion by closing a channel.
type Awaitable interface {
	Done() <-chan struct{}
}

// Future is a value that becomes available once.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
}

// NewPromise returns an unresolved Future and the function that resolves it.
// Only the first call to resolve has an effect.
func NewPromise[T any]() (*Future[T], func(T)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

// Done returns a channel closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Value returns the resolved value and true, or the zero value and false if
// the future is still pending.
func (f *Future[T]) Value() (T, bool) {
	select {
	case <-f.done:
		return f.value, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the future resolves or ctx is done.
//
// Giving up on a wait does not withdraw whatever will resolve the future; for
// Until that means the one-shot subscription stays installed.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Match describes the dispatch that resolved an Until future.
type Match[S any] struct {
	Action     *Action[S]
	Payload    any
	DispatchID string
}
