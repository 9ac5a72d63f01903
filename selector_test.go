package statebox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X int
	Y int
}

func TestSelect_KeyedOfFuncAndTuple(t *testing.T) {
	store := New(map[string]any{"x": 5})
	scale := func(s map[string]any, args ...any) any {
		return s["x"].(int) * args[0].(int)
	}

	got := store.Select(Keyed(map[string]Selector[map[string]any]{
		"a": Func(func(s map[string]any) any { return s["x"] }),
		"b": Tuple(scale, 3),
	}))

	assert.Equal(t, map[string]any{"a": 5, "b": 15}, got)
}

func TestSelect_Shapes(t *testing.T) {
	state := point{X: 1, Y: 2}
	sum := func(p point, args ...any) any {
		total := p.X + p.Y
		for _, a := range args {
			total += a.(int)
		}
		return total
	}

	tests := []struct {
		name string
		expr Selector[point]
		want any
	}{
		{name: "nil is the whole state", expr: nil, want: state},
		{name: "whole", expr: Whole[point](), want: state},
		{name: "func", expr: Func(func(p point) int { return p.X }), want: 1},
		{name: "nil func", expr: Func[point, int](nil), want: state},
		{name: "tuple", expr: Tuple(sum, 10, 20), want: 33},
		{name: "tuple without args", expr: Tuple(sum), want: 3},
		{name: "nil tuple", expr: Tuple[point](nil, 1), want: state},
		{
			name: "nested record",
			expr: Keyed(map[string]Selector[point]{
				"pos": Keyed(map[string]Selector[point]{
					"x": Func(func(p point) int { return p.X }),
					"y": Func(func(p point) int { return p.Y }),
				}),
				"all":   nil,
				"total": Tuple(sum),
			}),
			want: map[string]any{
				"pos":   map[string]any{"x": 1, "y": 2},
				"all":   state,
				"total": 3,
			},
		},
		{name: "empty record", expr: Keyed(map[string]Selector[point]{}), want: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluate(tt.expr, state))
		})
	}
}

func TestSelect_FieldsEvaluateInOrder(t *testing.T) {
	var order []string
	track := func(key string) Selector[int] {
		return Func(func(s int) int {
			order = append(order, key)
			return s
		})
	}

	got := evaluate(Fields(
		Field[int]{Key: "z", Selector: track("z")},
		Field[int]{Key: "a", Selector: track("a")},
		Field[int]{Key: "m", Selector: track("m")},
	), 7)

	assert.Equal(t, []string{"z", "a", "m"}, order)
	assert.Equal(t, map[string]any{"z": 7, "a": 7, "m": 7}, got)
}

func TestSelect_TupleArgsAreCopied(t *testing.T) {
	args := []any{1}
	sel := Tuple(func(s int, a ...any) any { return s + a[0].(int) }, args...)
	args[0] = 100

	assert.Equal(t, 2, evaluate(sel, 1))
}

func TestSelect_DoesNotMutateState(t *testing.T) {
	state := map[string]any{"n": 1}
	store := New(state)

	store.Select(Keyed(map[string]Selector[map[string]any]{
		"n": Func(func(s map[string]any) any { return s["n"] }),
	}))

	assert.Equal(t, map[string]any{"n": 1}, store.State())
}

func TestProject(t *testing.T) {
	store := New(point{X: 3, Y: 4})

	x, ok := Project[int](store, Func(func(p point) int { return p.X }))
	require.True(t, ok)
	assert.Equal(t, 3, x)

	_, ok = Project[string](store, Func(func(p point) int { return p.X }))
	assert.False(t, ok)
}

func TestSelect_KeyedFromObserver(t *testing.T) {
	var seen []any
	var store *Store[point]
	store = New(point{X: 1, Y: 2}, WithObserver(ObserverFunc(func(rec Record) {
		seen = append(seen, store.Select(Keyed(map[string]Selector[point]{
			"x":      Func(func(p point) int { return p.X }),
			"action": Func(func(point) string { return rec.Action }),
		})))
	})))

	_, err := store.Dispatch(Reduce("MoveX", func(p point, _ any) point {
		p.X++
		return p
	}), nil)
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"x": 2, "action": "MoveX"}}, seen)
}
