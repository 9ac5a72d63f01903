// Package script runs scripted store sessions described in YAML.
//
// A scenario declares an initial state, actions built from small state edits,
// subscribers that revert, fail or dispatch, the dispatches to perform and
// assertions on the result:
//
//	name: guarded-counter
//	description: increments past the limit are rolled back
//	state: {count: 0}
//	actions:
//	  Increment:
//	    ops:
//	      - {op: add, path: count, value: $payload}
//	subscribers:
//	  - on: Increment
//	    revert_when: {path: count, op: gt, value: 3}
//	steps:
//	  - {dispatch: Increment, payload: 2}
//	  - {dispatch: Increment, payload: 2}
//	assertions:
//	  - {type: state, path: count, equals: 2}
//	  - {type: outcome, action: Increment, index: 1, outcome: rolled_back}
//
// Runs are deterministic. Dispatch IDs come from a sequence generator and
// asynchronous actions are driven by a cooperative loop on the runner
// goroutine: their continuations run after the step that resolved them, in
// the order they were started. The same scenario therefore always produces
// the same trace, which is what golden snapshots compare.
package script
