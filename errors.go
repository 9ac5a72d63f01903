package statebox

import (
	"errors"
	"fmt"
)

var (
	// ErrRollback is returned by Context.Revert. A subscriber that returns it
	// stops the notification pass and rolls the dispatch back.
	ErrRollback = errors.New("statebox: rollback requested")

	// ErrSubscriberPanic wraps a panic recovered from a subscriber. The pass
	// stops as for any other subscriber error.
	ErrSubscriberPanic = errors.New("statebox: subscriber panicked")

	// ErrNilAction is returned when dispatching a nil action or a wildcard.
	ErrNilAction = errors.New("statebox: action is nil or not dispatchable")
)

// ActionError wraps an error returned by an action body.
type ActionError struct {
	Action     string
	DispatchID string
	Err        error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s (dispatch=%s): %v", e.Action, e.DispatchID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// SubscriberError describes a subscriber failure that stopped a notification
// pass. It is reported to observers and logs; Dispatch never returns it.
type SubscriberError struct {
	Action     string
	DispatchID string
	// Index is the subscriber's position in the pass snapshot.
	Index int
	Err   error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("subscriber %d failed during %s (dispatch=%s): %v", e.Index, e.Action, e.DispatchID, e.Err)
}

func (e *SubscriberError) Unwrap() error {
	return e.Err
}

// IsRollback reports whether err is, or wraps, ErrRollback.
func IsRollback(err error) bool {
	return errors.Is(err, ErrRollback)
}
