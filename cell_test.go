package statebox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell_CommitGuards(t *testing.T) {
	m := map[string]int{"a": 1}
	tests := []struct {
		name      string
		initial   any
		result    Result[any]
		committed bool
	}{
		{name: "keep", initial: 1, result: Keep[any]()},
		{name: "pending", initial: 1, result: Pending[any](closedAwaitable())},
		{name: "equal scalar", initial: 1, result: Next[any](1)},
		{name: "different scalar", initial: 1, result: Next[any](2), committed: true},
		{name: "same map", initial: m, result: Next[any](m)},
		{name: "equal map", initial: m, result: Next[any](map[string]int{"a": 1}), committed: true},
		{name: "nil to value", initial: nil, result: Next[any](0), committed: true},
		{name: "nil to nil", initial: nil, result: Next[any](nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cell[any]{value: tt.initial}

			w := c.commit(tt.result)

			assert.Equal(t, tt.committed, w.committed)
			assert.Equal(t, tt.initial, w.prev)
			if tt.committed {
				next, _ := tt.result.State()
				assert.Equal(t, next, c.get())
				assert.NotEqual(t, w.prevVersion, w.version)
			} else {
				assert.Equal(t, tt.initial, c.get())
				assert.Equal(t, w.prevVersion, w.version)
			}
		})
	}
}

func TestCell_RestoreChecksVersion(t *testing.T) {
	var c cell[int]

	outer := c.commit(Next(1))
	inner := c.commit(Next(2))

	assert.False(t, c.restore(outer.prev, outer.prevVersion, outer.version), "superseded by inner commit")
	assert.Equal(t, 2, c.get())

	assert.True(t, c.restore(inner.prev, inner.prevVersion, inner.version))
	assert.Equal(t, 1, c.get())

	assert.True(t, c.restore(outer.prev, outer.prevVersion, outer.version), "inner rollback reinstated outer version")
	assert.Equal(t, 0, c.get())
}

func TestCell_VersionsAreNotReused(t *testing.T) {
	var c cell[int]

	first := c.commit(Next(1))
	c.restore(first.prev, first.prevVersion, first.version)
	second := c.commit(Next(1))

	assert.NotEqual(t, first.version, second.version)
}

func closedAwaitable() Awaitable {
	f, resolve := NewPromise[struct{}]()
	resolve(struct{}{})
	return f
}
