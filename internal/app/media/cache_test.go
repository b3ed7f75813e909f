package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_FIFOEviction(t *testing.T) {
	c := NewCache(DefaultCacheSize)
	var seq Sequencer
	first := seq.Next()
	c.Insert(first, "WO-1", []byte{byte(first)})
	for i := 0; i < 100; i++ {
		s := seq.Next()
		c.Insert(s, "WO-1", []byte{byte(s)})
	}

	assert.Equal(t, 100, c.Len())
	_, ok := c.Lookup(first)
	assert.False(t, ok, "oldest entry must be evicted")
	for s := first + 1; s <= first+100; s++ {
		e, ok := c.Lookup(s)
		require.True(t, ok, "seq %d", s)
		assert.Equal(t, []byte{byte(s)}, e.Frame)
	}
}

func TestCache_LookupDoesNotPromote(t *testing.T) {
	c := NewCache(2)
	c.Insert(1, "r", []byte("a"))
	c.Insert(2, "r", []byte("b"))
	_, ok := c.Lookup(1)
	require.True(t, ok)

	c.Insert(3, "r", []byte("c"))
	_, ok = c.Lookup(1)
	assert.False(t, ok)
	_, ok = c.Lookup(2)
	assert.True(t, ok)
}

func TestCache_DuplicateInsertKeepsFirst(t *testing.T) {
	c := NewCache(2)
	c.Insert(1, "r", []byte("a"))
	c.Insert(1, "r", []byte("z"))
	e, ok := c.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, []byte("a"), e.Frame)
	assert.Equal(t, 1, c.Len())
}

func TestSequencer_StrictlyIncreasing(t *testing.T) {
	var s Sequencer
	prev := s.Next()
	assert.Equal(t, uint64(1), prev)
	for i := 0; i < 1000; i++ {
		n := s.Next()
		require.Greater(t, n, prev)
		prev = n
	}
}
