// Package statebox is a small reactive state container.
//
// A Store holds a single state value. The value is replaced, never mutated in
// place, and only actions change it. Readers project values out of the state
// with selectors and observe changes through subscriptions.
//
// # Dispatch Lifecycle
//
// Every call to Dispatch runs to completion before it returns:
//
//  1. A fresh Context is built for the call (action, payload, helpers).
//  2. The action runs with the current state and the Context.
//  3. A returned state (Next) is committed unless it is identical to the
//     current value. Keep and pending results are never committed.
//  4. A snapshot of the subscribers, in registration order, is notified with
//     the committed state. Subscribers registered during the pass wait for the
//     next dispatch; subscribers removed during the pass are skipped.
//  5. The action's Result is returned to the caller unchanged.
//
// Notification happens on every dispatch, whether or not the state changed.
//
// # Rollback
//
// A subscriber that returns dc.Revert() stops the pass and restores the state
// held before the action's result was committed. Any other subscriber error
// also stops the pass but is swallowed: it is logged and reported to the
// Observer, never returned from Dispatch. Action errors are returned from
// Dispatch as *ActionError and nothing is committed or notified.
//
// # Reentrancy
//
// Actions and subscribers may dispatch again through their Context. Nested
// dispatches finish (including their own notification pass) before control
// returns to the caller. Each dispatch keeps its own rollback target, and a
// rollback never discards a value committed by a nested dispatch that already
// returned.
//
// # Asynchronous Actions
//
// An action that needs to wait returns a pending result (Go or Pending). The
// store neither waits for it nor commits it; the continuation changes state by
// dispatching again. Until returns a Future resolved by the next matching
// dispatch, which makes "wait for action X" a one-liner:
//
//	Startup := statebox.NewAction("Startup", func(s int, dc *statebox.Context[int]) (statebox.Result[int], error) {
//	    ready := dc.Until(Loaded)
//	    return statebox.Go[int](func() error {
//	        if _, err := ready.Wait(context.Background()); err != nil {
//	            return err
//	        }
//	        _, err := dc.Dispatch(Render, nil)
//	        return err
//	    }), nil
//	})
//
// The store guards its state and subscriber list with a mutex that is never
// held while actions, subscribers or observers run.
package statebox
