package statebox

import (
	"fmt"
	"log/slog"
)

// Store is a reactive state container. Create one with New; stores never
// share state.
//
// Thread-safety: methods may be called from several goroutines without data
// races, but dispatches from different goroutines may interleave: an action
// reads the state and its result is committed later, so concurrent
// read-modify-write actions can overwrite each other. Dispatch from a single
// goroutine when updates must not be lost. No lock is held while actions,
// subscribers or observers run.
type Store[S any] struct {
	cell     cell[S]
	subs     registry[S]
	clock    Clock
	logger   *slog.Logger
	observer Observer
	ids      IDGenerator
}

// New creates a store holding initial.
func New[S any](initial S, opts ...Option) *Store[S] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Store[S]{
		logger:   cfg.logger,
		observer: cfg.observer,
		ids:      cfg.ids,
		clock:    cfg.clock,
	}
	s.cell.value = initial
	return s
}

// State returns the current state.
func (s *Store[S]) State() S {
	return s.cell.get()
}

// Select evaluates expr against the current state. A nil expr returns the
// state itself.
func (s *Store[S]) Select(expr Selector[S]) any {
	return evaluate(expr, s.cell.get())
}

// Subscribe registers fn to run after every dispatch. Subscribers run in
// registration order.
func (s *Store[S]) Subscribe(fn Subscriber[S]) Unsubscribe {
	return s.subs.insert(&subscription[S]{fn: fn})
}

// SubscribeAction registers fn to run only after dispatches of action. A
// wildcard from Any matches every dispatch.
func (s *Store[S]) SubscribeAction(action *Action[S], fn Subscriber[S]) Unsubscribe {
	return s.Subscribe(func(state S, dc *Context[S]) error {
		if !action.matches(dc.action) {
			return nil
		}
		return fn(state, dc)
	})
}

// Until returns a future resolved by the first dispatch of action, or of any
// action when action is a wildcard. The subscription it installs removes
// itself when it fires.
//
// The future resolves with the dispatch's action and payload, not with the
// action's result. It never resolves if no such dispatch happens.
func (s *Store[S]) Until(action *Action[S]) *Future[Match[S]] {
	f, resolve := NewPromise[Match[S]]()
	sub := &subscription[S]{}
	sub.fn = func(_ S, dc *Context[S]) error {
		if !action.matches(dc.action) {
			return nil
		}
		if s.subs.remove(sub) {
			resolve(Match[S]{Action: dc.action, Payload: dc.payload, DispatchID: dc.id})
		}
		return nil
	}
	s.subs.insert(sub)
	return f
}

// Dispatch runs action with payload.
//
// The action sees the current state. A Next result not identical to the
// current state is committed; Keep and pending results never are. Subscribers
// are notified either way. A subscriber returning dc.Revert() stops the pass
// and restores the state the dispatch replaced; any other subscriber error
// stops the pass and is logged but not returned.
//
// Dispatch returns exactly what the action returned. An action error is
// returned as *ActionError and nothing is committed or notified.
func (s *Store[S]) Dispatch(action *Action[S], payload any) (Result[S], error) {
	return s.dispatch(action, payload, nil)
}

// Subscribers returns the number of active subscriptions.
func (s *Store[S]) Subscribers() int {
	return s.subs.len()
}

func (s *Store[S]) dispatch(action *Action[S], payload any, parent *Context[S]) (Result[S], error) {
	if action == nil || action.wildcard || action.fn == nil {
		return Result[S]{}, ErrNilAction
	}

	dc := &Context[S]{
		store:   s,
		action:  action,
		payload: payload,
		id:      s.ids.Generate(),
		seq:     s.clock.Next(),
		parent:  parent,
	}
	if parent != nil {
		dc.depth = parent.depth + 1
	}

	rec := Record{
		ID:      dc.id,
		Seq:     dc.seq,
		Depth:   dc.depth,
		Action:  action.name,
		Payload: payload,
	}
	if parent != nil {
		rec.ParentID = parent.id
	}

	result, err := action.fn(s.cell.get(), dc)
	if err != nil {
		aerr := &ActionError{Action: action.name, DispatchID: dc.id, Err: err}
		rec.Outcome = OutcomeFailed
		rec.Err = aerr
		s.logger.Debug("dispatch failed",
			"dispatch_id", dc.id,
			"action", action.name,
			"seq", dc.seq,
			"error", err)
		s.emit(rec)
		return result, aerr
	}

	// Dispatches the action made itself are part of the rollback target.
	w := s.cell.commit(result)
	rec.Committed = w.committed

	state := s.cell.get()
	p := s.subs.notify(state, dc)
	rec.Notified = p.notified

	switch p.outcome {
	case passCompleted:
		rec.Outcome = OutcomeCompleted
	case passRolledBack:
		rec.Outcome = OutcomeRolledBack
		rec.Err = &SubscriberError{Action: action.name, DispatchID: dc.id, Index: p.index, Err: p.err}
		if !s.cell.restore(w.prev, w.prevVersion, w.version) {
			s.logger.Debug("rollback superseded by a later commit",
				"dispatch_id", dc.id,
				"action", action.name)
		}
	case passAborted:
		rec.Outcome = OutcomeAborted
		serr := &SubscriberError{Action: action.name, DispatchID: dc.id, Index: p.index, Err: p.err}
		rec.Err = serr
		s.logger.Warn("subscriber failed, notification pass stopped",
			"dispatch_id", dc.id,
			"action", action.name,
			"subscriber", p.index,
			"error", p.err)
	default:
		panic(fmt.Sprintf("statebox: unknown pass outcome %d", p.outcome))
	}

	s.logger.Debug("dispatch",
		"dispatch_id", dc.id,
		"action", action.name,
		"seq", dc.seq,
		"committed", w.committed,
		"outcome", string(rec.Outcome),
		"notified", rec.Notified)
	s.emit(rec)
	return result, nil
}

func (s *Store[S]) emit(rec Record) {
	s.observer.OnDispatch(rec)
}
