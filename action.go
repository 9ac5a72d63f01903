package statebox

import "context"

// ActionFunc computes the outcome of a dispatch from the current state.
//
// A non-nil error aborts the dispatch: nothing is committed, no subscriber is
// notified and Dispatch returns the error wrapped in *ActionError.
type ActionFunc[S any] func(state S, dc *Context[S]) (Result[S], error)

// Action is a named action. Actions are identified by pointer: two actions
// with the same name are still different actions.
type Action[S any] struct {
	name     string
	fn       ActionFunc[S]
	wildcard bool
}

// NewAction creates an action. The name is used for logs and traces only.
func NewAction[S any](name string, fn ActionFunc[S]) *Action[S] {
	return &Action[S]{name: name, fn: fn}
}

// Reduce creates a synchronous action from a reducer over state and payload.
func Reduce[S any](name string, fn func(state S, payload any) S) *Action[S] {
	return NewAction(name, func(state S, dc *Context[S]) (Result[S], error) {
		return Next(fn(state, dc.Payload())), nil
	})
}

// Any returns a wildcard that matches every action in Until and
// SubscribeAction. A wildcard cannot be dispatched.
func Any[S any]() *Action[S] {
	return &Action[S]{name: "*", wildcard: true}
}

// Name returns the action name.
func (a *Action[S]) Name() string {
	if a == nil {
		return ""
	}
	return a.name
}

func (a *Action[S]) String() string {
	return a.Name()
}

// IsWildcard reports whether a was created by Any.
func (a *Action[S]) IsWildcard() bool {
	return a != nil && a.wildcard
}

// matches reports whether a dispatch of other satisfies the filter a.
func (a *Action[S]) matches(other *Action[S]) bool {
	if a == nil {
		return false
	}
	return a.wildcard || a == other
}

type resultKind uint8

const (
	resultEmpty resultKind = iota
	resultState
	resultPending
)

// Result is what an action returns: a next state (Next), nothing (Keep), or
// a pending asynchronous continuation (Pending, Go).
//
// Only Next results are ever committed. The zero Result is equivalent to Keep.
type Result[S any] struct {
	kind    resultKind
	state   S
	pending Awaitable
}

// Next returns a result that commits state.
func Next[S any](state S) Result[S] {
	return Result[S]{kind: resultState, state: state}
}

// Keep returns a result that leaves the state unchanged.
func Keep[S any]() Result[S] {
	return Result[S]{}
}

// Pending returns a result for an action that continues asynchronously.
// The store does not wait for a and never commits the result.
func Pending[S any](a Awaitable) Result[S] {
	return Result[S]{kind: resultPending, pending: a}
}

// Go runs fn on a new goroutine and returns a pending result whose awaitable
// is a *Future[error] resolved with fn's return value.
func Go[S any](fn func() error) Result[S] {
	f, resolve := NewPromise[error]()
	go func() {
		resolve(fn())
	}()
	return Pending[S](f)
}

// State returns the carried state and true for Next results.
func (r Result[S]) State() (S, bool) {
	if r.kind != resultState {
		var zero S
		return zero, false
	}
	return r.state, true
}

// IsPending reports whether the result is an asynchronous continuation.
func (r Result[S]) IsPending() bool {
	return r.kind == resultPending
}

// IsEmpty reports whether the result is Keep.
func (r Result[S]) IsEmpty() bool {
	return r.kind == resultEmpty
}

// Awaitable returns the awaitable of a pending result, or nil.
func (r Result[S]) Awaitable() Awaitable {
	return r.pending
}

// Wait blocks until a pending result settles or ctx is done. Non-pending
// results return immediately. If the awaitable is a *Future[error] (as
// produced by Go) its value is returned.
func (r Result[S]) Wait(ctx context.Context) error {
	if r.kind != resultPending || r.pending == nil {
		return nil
	}
	select {
	case <-r.pending.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if f, ok := r.pending.(*Future[error]); ok {
		err, _ := f.Value()
		return err
	}
	return nil
}
