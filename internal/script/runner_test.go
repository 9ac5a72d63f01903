package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Minimal(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, State{"count": 1}, result.State)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "d-0001", result.Trace[0].ID)
	assert.True(t, result.Trace[0].Committed)
}

func TestRun_FailingAssertionReported(t *testing.T) {
	src := strings.Replace(minimalScenario, "equals: 1", "equals: 5", 1)

	result, err := Run(mustParse(t, src))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertions[0]")
	assert.Contains(t, result.Errors[0], "Expected: count = 5")
}

func TestRun_ActionFailure(t *testing.T) {
	s := mustParse(t, `
name: failing
description: failing actions commit nothing
state: {n: 1}
actions:
  Boom: {fail: kaput}
  Bump:
    ops: [{op: add, path: n, value: 1}]
subscribers:
  - dispatch: Bump
    when: {path: n, op: lt, value: 0}
steps:
  - {dispatch: Boom, expect_error: true}
  - {dispatch: Boom}
assertions:
  - {type: state, path: n, equals: 1}
  - {type: outcome, action: Boom, outcome: failed}
  - {type: outcome, action: Boom, index: 1, outcome: failed}
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1, "only the unexpected failure is reported")
	assert.Contains(t, result.Errors[0], "steps[1]: dispatch Boom")
	assert.Contains(t, result.Errors[0], "kaput")
	assert.Equal(t, 0, result.Trace[0].Notified)
}

func TestRun_ExpectedErrorMissing(t *testing.T) {
	src := strings.Replace(minimalScenario, "- dispatch: Increment", "- {dispatch: Increment, expect_error: true}", 1)

	result, err := Run(mustParse(t, src))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected an error")
}

func TestRun_SubscriberFailureStopsPassWithoutRollback(t *testing.T) {
	s := mustParse(t, `
name: fail-when
description: a failing subscriber stops the pass but keeps the state
state: {n: 0, audits: 0}
actions:
  Set:
    ops: [{op: set, path: n, value: $payload}]
  Audit:
    ops: [{op: add, path: audits, value: 1}]
subscribers:
  - on: Set
    fail_when: {path: n, op: gte, value: 10}
  - on: Set
    dispatch: Audit
steps:
  - {dispatch: Set, payload: 5}
  - {dispatch: Set, payload: 50}
assertions:
  - {type: state, path: n, equals: 50}
  - {type: state, path: audits, equals: 1}
  - {type: outcome, action: Set, index: 1, outcome: aborted}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Contains(t, result.Trace[2].Error, "subscribers[0]: n gte held")
}

func TestRun_OnceSubscriber(t *testing.T) {
	s := mustParse(t, `
name: once
description: once subscribers fire a single time
state: {hits: 0}
actions:
  Ping: {noop: true}
  Hit:
    ops: [{op: add, path: hits, value: 1}]
subscribers:
  - {on: Ping, dispatch: Hit, once: true}
steps:
  - dispatch: Ping
  - dispatch: Ping
  - dispatch: Ping
assertions:
  - {type: state, path: hits, equals: 1}
  - {type: dispatch_count, action: Hit, count: 1}
  - {type: dispatch_count, count: 4}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_DepthLimit(t *testing.T) {
	s := mustParse(t, `
name: runaway
description: a subscriber that dispatches on every dispatch is cut off
actions:
  Ping: {noop: true}
subscribers:
  - {on: "*", dispatch: Ping}
steps:
  - dispatch: Ping
assertions:
  - {type: dispatch_count, action: Ping, count: 33}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	deepest := result.Trace[len(result.Trace)-1]
	assert.Equal(t, MaxDepth, deepest.Depth)
	assert.Equal(t, string(statebox.OutcomeAborted), deepest.Outcome)
	assert.Contains(t, deepest.Error, "depth limit")
}

func TestRun_SchemaViolationReported(t *testing.T) {
	s := mustParse(t, `
name: schema
description: the schema is checked after every step
state: {n: 0}
schema: |
  #State: {n: int & <=1}
actions:
  Inc:
    ops: [{op: add, path: n, value: 1}]
steps:
  - dispatch: Inc
  - dispatch: Inc
assertions:
  - {type: state, path: n, equals: 2}
`)

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1]")
}

func TestRun_InvalidSchemaFailsRun(t *testing.T) {
	s := mustParse(t, minimalScenario)
	s.Schema = "#State: {"

	_, err := Run(s)
	assert.ErrorContains(t, err, "schema")
}

func TestRun_PendingContinuations(t *testing.T) {
	s := mustParse(t, `
name: waiting
description: a continuation whose trigger never comes stays pending
actions:
  Wait:
    async: true
    until: Never
    then: [{dispatch: Never}]
  Never: {noop: true}
steps:
  - dispatch: Wait
assertions:
  - {type: dispatch_count, action: Never, count: 0}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Pending)
}

func TestRun_ContinuationSeesTriggerPayload(t *testing.T) {
	s := mustParse(t, `
name: handoff
description: then steps receive the payload of the dispatch that resolved until
state: {}
actions:
  Listen:
    async: true
    until: Login
    then: [{dispatch: Store, payload: $payload.token}]
  Login: {noop: true}
  Store:
    ops: [{op: set, path: token, value: $payload}]
steps:
  - dispatch: Listen
  - {dispatch: Login, payload: {token: abc}}
assertions:
  - {type: state, path: token, equals: abc}
  - {type: dispatch_order, actions: [Listen, Login, Store]}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "d-0001", result.Trace[2].ParentID)
}

func TestRun_WildcardUntilMatchesItsOwnDispatch(t *testing.T) {
	s := mustParse(t, `
name: self
description: a wildcard until installed by an action is satisfied by that same dispatch
actions:
  Listen:
    async: true
    until: "*"
    then: [{dispatch: Done}]
  Done: {noop: true}
steps:
  - dispatch: Listen
assertions:
  - {type: dispatch_order, actions: [Listen, Done]}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 0, result.Pending)
}

func TestRunWithOptions_Observer(t *testing.T) {
	var actions []string
	obs := statebox.ObserverFunc(func(rec statebox.Record) {
		actions = append(actions, rec.Action)
	})

	result, err := RunWithOptions(mustParse(t, minimalScenario), RunOptions{Observer: obs})
	require.NoError(t, err)

	assert.True(t, result.Pass)
	assert.Equal(t, []string{"Increment"}, actions)
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertDispatchCount,
		Expected: "A dispatched 2 times",
		Actual:   "dispatched 1 times",
		Trace:    []TraceEvent{{Seq: 1, Action: "A", Outcome: "completed"}, {Seq: 2, Depth: 1, Action: "B", Outcome: "rolled_back"}},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: dispatch_count")
	assert.Contains(t, msg, "[1] A completed")
	assert.Contains(t, msg, "[2]   B rolled_back")
}
