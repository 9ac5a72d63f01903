package script

import (
	"bytes"
	"fmt"
	"maps"
	"strings"

	"github.com/roach88/statebox/internal/canonical"
)

// State is the state type scenarios run on.
type State = map[string]any

const (
	payloadRef = "$payload"
	stateRef   = "$state"
)

func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// lookup returns the value at path. An empty path returns root.
func lookup(root any, path string) (any, bool) {
	cur := root
	for _, key := range splitPath(path) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// resolve replaces $payload and $state references in v, recursing into maps
// and lists. Unresolvable references become nil.
func resolve(v any, state State, payload any) any {
	switch val := v.(type) {
	case string:
		switch {
		case val == payloadRef:
			return payload
		case strings.HasPrefix(val, payloadRef+"."):
			got, _ := lookup(payload, strings.TrimPrefix(val, payloadRef+"."))
			return got
		case val == stateRef:
			return state
		case strings.HasPrefix(val, stateRef+"."):
			got, _ := lookup(state, strings.TrimPrefix(val, stateRef+"."))
			return got
		}
		return val
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = resolve(elem, state, payload)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = resolve(elem, state, payload)
		}
		return out
	}
	return v
}

// update returns a copy of root with fn applied to the parent map of the last
// path element. Maps along the path are copied; root is never modified.
// Missing intermediate maps are created.
func update(root State, path []string, fn func(parent map[string]any, key string) error) (State, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	out := maps.Clone(root)
	if out == nil {
		out = State{}
	}

	parent := out
	for i, key := range path[:len(path)-1] {
		var child map[string]any
		switch existing := parent[key].(type) {
		case map[string]any:
			child = maps.Clone(existing)
		case nil:
			child = map[string]any{}
		default:
			return nil, fmt.Errorf("%s is %T, not an object", strings.Join(path[:i+1], "."), existing)
		}
		parent[key] = child
		parent = child
	}

	if err := fn(parent, path[len(path)-1]); err != nil {
		return nil, err
	}
	return out, nil
}

// apply runs ops in order and returns the new state. state is not modified.
func apply(state State, ops []Op, payload any) (State, error) {
	next := state
	for i, op := range ops {
		value := resolve(op.Value, next, payload)

		var err error
		next, err = applyOp(next, op, value)
		if err != nil {
			return nil, fmt.Errorf("ops[%d] %s %s: %w", i, op.Op, op.Path, err)
		}
	}
	return next, nil
}

func applyOp(state State, op Op, value any) (State, error) {
	path := splitPath(op.Path)

	switch op.Op {
	case OpSet:
		return update(state, path, func(parent map[string]any, key string) error {
			parent[key] = value
			return nil
		})

	case OpAdd:
		return update(state, path, func(parent map[string]any, key string) error {
			sum, err := addNumbers(parent[key], value)
			if err != nil {
				return err
			}
			parent[key] = sum
			return nil
		})

	case OpDelete:
		return update(state, path, func(parent map[string]any, key string) error {
			delete(parent, key)
			return nil
		})

	case OpMerge:
		patch, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("merge value must be an object, got %T", value)
		}
		if len(path) == 0 {
			out := maps.Clone(state)
			if out == nil {
				out = State{}
			}
			maps.Copy(out, patch)
			return out, nil
		}
		return update(state, path, func(parent map[string]any, key string) error {
			var merged map[string]any
			switch existing := parent[key].(type) {
			case map[string]any:
				merged = maps.Clone(existing)
			case nil:
				merged = map[string]any{}
			default:
				return fmt.Errorf("cannot merge into %T", existing)
			}
			maps.Copy(merged, patch)
			parent[key] = merged
			return nil
		})
	}
	return nil, fmt.Errorf("unknown op %q", op.Op)
}

// addNumbers adds two YAML numbers. A missing current value counts as zero.
// Integers stay integers.
func addNumbers(current, delta any) (any, error) {
	if current == nil {
		current = 0
	}
	ci, cInt := toInt(current)
	di, dInt := toInt(delta)
	if cInt && dInt {
		return ci + di, nil
	}

	cf, cOK := toFloat(current)
	df, dOK := toFloat(delta)
	if !cOK || !dOK {
		return nil, fmt.Errorf("cannot add %T to %T", delta, current)
	}
	return cf + df, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	if i, ok := toInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// evalCondition reports whether c holds for state. Values may reference
// $payload and $state.
func evalCondition(c *Condition, state State, payload any) (bool, error) {
	got, found := lookup(state, c.Path)
	want := resolve(c.Value, state, payload)

	switch c.Op {
	case "exists":
		return found, nil
	case "missing":
		return !found, nil
	case "eq":
		return found && sameValue(got, want), nil
	case "ne":
		return !found || !sameValue(got, want), nil
	}

	if !found {
		return false, nil
	}
	g, gOK := toFloat(got)
	w, wOK := toFloat(want)
	if !gOK || !wOK {
		return false, fmt.Errorf("%s: cannot compare %T with %T", c.Op, got, want)
	}
	switch c.Op {
	case "gt":
		return g > w, nil
	case "gte":
		return g >= w, nil
	case "lt":
		return g < w, nil
	case "lte":
		return g <= w, nil
	}
	return false, fmt.Errorf("unknown condition op %q", c.Op)
}

// sameValue compares two decoded values structurally. Numbers compare by
// value regardless of Go type.
func sameValue(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	ab, aErr := canonical.Marshal(a)
	bb, bErr := canonical.Marshal(b)
	if aErr != nil || bErr != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}
