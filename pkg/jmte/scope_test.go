package jmte

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeStackShadowing(t *testing.T) {
	model := map[string]any{"name": "model", "other": 1}
	scope := NewScopeStack(model)
	require.Equal(t, 1, scope.Depth())

	scope.Push()
	scope.Set("name", "inner")

	v, ok := scope.Lookup("name")
	require.True(t, ok)
	assert.Equal(t, "inner", v)

	v, ok = scope.Lookup("other")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	scope.Pop()
	v, _ = scope.Lookup("name")
	assert.Equal(t, "model", v)
	assert.Equal(t, "model", model["name"], "model must not be written to")
}

func TestScopeStackSetNeverWritesModel(t *testing.T) {
	model := map[string]any{"a": 1}
	scope := NewScopeStack(model)

	scope.Set("b", 2)
	assert.Equal(t, 2, scope.Depth())
	assert.NotContains(t, model, "b")

	v, ok := scope.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestScopeStackPopKeepsModel(t *testing.T) {
	scope := NewScopeStack(map[string]any{"a": 1})
	scope.Pop()
	scope.Pop()
	assert.Equal(t, 1, scope.Depth())

	_, ok := scope.Lookup("a")
	assert.True(t, ok)
}

func TestScopeStackNilModel(t *testing.T) {
	scope := NewScopeStack(nil)
	_, ok := scope.Lookup("anything")
	assert.False(t, ok)
}

func TestScopeStackEnterPopsOnPanic(t *testing.T) {
	scope := NewScopeStack(nil)

	func() {
		defer func() { _ = recover() }()
		scope.Enter(func() {
			scope.Set("x", 1)
			panic("boom")
		})
	}()

	assert.Equal(t, 1, scope.Depth())
	_, ok := scope.Lookup("x")
	assert.False(t, ok, "variable leaked out of its frame")
}

func TestScopeStackNestedEnter(t *testing.T) {
	scope := NewScopeStack(map[string]any{"x": "outer"})

	var seen []any
	scope.Enter(func() {
		scope.Set("x", "loop1")
		scope.Enter(func() {
			scope.Set("x", "loop2")
			v, _ := scope.Lookup("x")
			seen = append(seen, v)
		})
		v, _ := scope.Lookup("x")
		seen = append(seen, v)
	})
	v, _ := scope.Lookup("x")
	seen = append(seen, v)

	assert.Equal(t, []any{"loop2", "loop1", "outer"}, seen)
}
