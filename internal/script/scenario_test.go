package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `
name: minimal
description: one increment
state: {count: 0}
actions:
  Increment:
    ops:
      - {op: add, path: count, value: 1}
steps:
  - dispatch: Increment
assertions:
  - {type: state, path: count, equals: 1}
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, map[string]any{"count": 0}, s.State)
	require.Len(t, s.Actions["Increment"].Ops, 1)
	assert.Equal(t, OpAdd, s.Actions["Increment"].Ops[0].Op)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	assert.ErrorContains(t, err, "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: `
description: d
actions: {A: {noop: true}}
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: "name is required",
		},
		{
			name: "no steps",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
assertions: [{type: dispatch_count, count: 1}]`,
			want: "steps list is required",
		},
		{
			name: "two action kinds",
			yaml: `
name: n
description: d
actions: {A: {noop: true, fail: boom}}
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: "exactly one of ops, noop, fail or async",
		},
		{
			name: "unknown op",
			yaml: `
name: n
description: d
actions: {A: {ops: [{op: multiply, path: x}]}}
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: `unknown op "multiply"`,
		},
		{
			name: "until without async",
			yaml: `
name: n
description: d
actions: {A: {noop: true, until: A}}
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: "until and then require async",
		},
		{
			name: "unknown step action",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
steps: [{dispatch: B}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: `unknown action "B"`,
		},
		{
			name: "reserved action name",
			yaml: `
name: n
description: d
actions: {"*": {noop: true}}
steps: [{dispatch: "*"}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: "is reserved",
		},
		{
			name: "subscriber without effect",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
subscribers: [{on: A}]
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: "one of revert_when, fail_when or dispatch",
		},
		{
			name: "bad condition op",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
subscribers: [{revert_when: {path: x, op: around}}]
steps: [{dispatch: A}]
assertions: [{type: dispatch_count, count: 1}]`,
			want: `revert_when: unknown op "around"`,
		},
		{
			name: "bad outcome",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
steps: [{dispatch: A}]
assertions: [{type: outcome, action: A, outcome: exploded}]`,
			want: `unknown outcome "exploded"`,
		},
		{
			name: "unknown assertion type",
			yaml: `
name: n
description: d
actions: {A: {noop: true}}
steps: [{dispatch: A}]
assertions: [{type: trace_contains}]`,
			want: `unknown type "trace_contains"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidScenario)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
