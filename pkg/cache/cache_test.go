package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_SetGet(t *testing.T) {
	c := NewLRU[string, string](10, time.Minute)
	c.Set("PPXDC", "<html>")

	v, ok := c.Get("PPXDC")
	require.True(t, ok)
	assert.Equal(t, "<html>", v)

	_, ok = c.Get("PRABC")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// touch a so b becomes the eviction candidate
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("c", 3)

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRU_Expires(t *testing.T) {
	c := NewLRU[string, string](10, 30*time.Millisecond)
	c.Set("k", "v")

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(80 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire after ttl")
}

func TestLRU_NonPositiveSize(t *testing.T) {
	c := NewLRU[string, string](0, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	assert.Equal(t, 1, c.Len())
}

func TestNop(t *testing.T) {
	var c Cache[string, string] = Nop[string, string]{}
	c.Set("a", "1")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
