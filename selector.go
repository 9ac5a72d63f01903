package statebox

import (
	"maps"
	"slices"
)

type selectorKind uint8

const (
	kindWhole selectorKind = iota
	kindFunc
	kindTuple
	kindRecord
)

// Selector describes a projection of the state. Build one with Func, Tuple,
// Keyed, Fields or Whole. A nil Selector selects the whole state.
type Selector[S any] interface {
	kind() selectorKind
}

type wholeSelector[S any] struct{}

func (wholeSelector[S]) kind() selectorKind { return kindWhole }

type funcSelector[S any] struct {
	fn func(S) any
}

func (funcSelector[S]) kind() selectorKind { return kindFunc }

type tupleSelector[S any] struct {
	fn   func(S, ...any) any
	args []any
}

func (tupleSelector[S]) kind() selectorKind { return kindTuple }

// Field is a named entry of a record selector.
type Field[S any] struct {
	Key      string
	Selector Selector[S]
}

type recordSelector[S any] struct {
	fields []Field[S]
}

func (recordSelector[S]) kind() selectorKind { return kindRecord }

// Whole selects the state itself.
func Whole[S any]() Selector[S] {
	return wholeSelector[S]{}
}

// Func selects fn(state). A nil fn selects the whole state.
func Func[S, T any](fn func(S) T) Selector[S] {
	if fn == nil {
		return wholeSelector[S]{}
	}
	return funcSelector[S]{fn: func(s S) any { return fn(s) }}
}

// Tuple selects fn(state, args...).
func Tuple[S any](fn func(state S, args ...any) any, args ...any) Selector[S] {
	if fn == nil {
		return wholeSelector[S]{}
	}
	return tupleSelector[S]{fn: fn, args: slices.Clone(args)}
}

// Keyed selects a map[string]any with one entry per key, each produced by
// its own (possibly nested) selector. Keys are evaluated in sorted order.
func Keyed[S any](fields map[string]Selector[S]) Selector[S] {
	keys := slices.Sorted(maps.Keys(fields))
	out := make([]Field[S], 0, len(keys))
	for _, k := range keys {
		out = append(out, Field[S]{Key: k, Selector: fields[k]})
	}
	return recordSelector[S]{fields: out}
}

// Fields is Keyed with an explicit evaluation order.
func Fields[S any](fields ...Field[S]) Selector[S] {
	return recordSelector[S]{fields: slices.Clone(fields)}
}

// evaluate projects state through expr. It never mutates state.
func evaluate[S any](expr Selector[S], state S) any {
	if expr == nil {
		return state
	}

	switch expr.kind() {
	case kindFunc:
		return expr.(funcSelector[S]).fn(state)
	case kindTuple:
		sel := expr.(tupleSelector[S])
		return sel.fn(state, sel.args...)
	case kindRecord:
		sel := expr.(recordSelector[S])
		out := make(map[string]any, len(sel.fields))
		for _, f := range sel.fields {
			out[f.Key] = evaluate(f.Selector, state)
		}
		return out
	case kindWhole:
		return state
	}
	return state
}

// Reader is implemented by Store and Context.
type Reader[S any] interface {
	Select(expr Selector[S]) any
}

// Project evaluates expr through r and asserts the result to T.
func Project[T, S any](r Reader[S], expr Selector[S]) (T, bool) {
	v, ok := r.Select(expr).(T)
	return v, ok
}
