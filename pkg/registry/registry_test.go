package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterAndGet(t *testing.T) {
	r := NewBaseRegistry[string]()
	require.NoError(t, r.Register("a", "alpha"))
	require.NoError(t, r.Register("b", "beta"))

	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "alpha", v)

	assert.Equal(t, 2, r.Count())
	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestBaseRegistry_RegisterRejectsEmptyName(t *testing.T) {
	r := NewBaseRegistry[int]()
	err := r.Register("", 1)
	require.Error(t, err)
}

func TestBaseRegistry_ReplaceKeepsPosition(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("a", 100))

	assert.Equal(t, []string{"a", "b"}, r.Names())
	v, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 100, v)
	assert.Equal(t, []int{100, 2}, r.List())
}

func TestBaseRegistry_Remove(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))

	assert.True(t, r.Remove("a"))
	assert.False(t, r.Remove("a"))
	assert.Equal(t, []string{"b"}, r.Names())
	assert.Equal(t, 1, r.Count())
}

func TestBaseRegistry_Clear(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	r.Clear()
	assert.Equal(t, 0, r.Count())
	assert.Empty(t, r.Names())
}

func TestBaseRegistry_GetMissing(t *testing.T) {
	r := NewBaseRegistry[int]()
	_, ok := r.Get("missing")
	assert.False(t, ok)
}
