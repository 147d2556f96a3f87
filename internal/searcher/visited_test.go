package searcher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitedSet(t *testing.T) {
	v := NewVisitedSet(64)

	ids := []uint32{0, 1, 63, 64, 100, 1000}
	for _, id := range ids {
		assert.False(t, v.Visited(id))
		assert.True(t, v.Visit(id))
	}
	for _, id := range ids {
		assert.True(t, v.Visited(id))
		assert.False(t, v.Visit(id), "second visit of %d", id)
	}
	assert.False(t, v.Visited(2))
	assert.GreaterOrEqual(t, v.Capacity(), 1001)

	v.Reset()
	for _, id := range ids {
		assert.False(t, v.Visited(id))
	}
}

func TestVisitedSetEnsureCapacity(t *testing.T) {
	v := NewVisitedSet(10)
	v.EnsureCapacity(5000)
	assert.GreaterOrEqual(t, v.Capacity(), 5000)

	v.EnsureCapacity(10)
	assert.GreaterOrEqual(t, v.Capacity(), 5000)
}

func TestPoolSlots(t *testing.T) {
	p := NewPool(2, 16, 8, 2)
	require.Equal(t, 2, p.Slots())

	c0, err := p.Slot(0)
	require.NoError(t, err)
	again, err := p.Slot(0)
	require.NoError(t, err)
	assert.Same(t, c0, again)

	_, err = p.Slot(2)
	assert.ErrorIs(t, err, ErrInvalidSlot)
	_, err = p.Slot(-1)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestPoolResetsAndGrows(t *testing.T) {
	p := NewPool(1, 16, 8, 2)

	c, err := p.Slot(0)
	require.NoError(t, err)
	c.Visited.Visit(3)
	c.Results.PushItem(PriorityQueueItem{Node: 3})

	p.Grow(4096)
	c, err = p.Slot(0)
	require.NoError(t, err)
	assert.False(t, c.Visited.Visited(3))
	assert.Zero(t, c.Results.Len())
	assert.GreaterOrEqual(t, c.Visited.Capacity(), 4096)

	p.Grow(100)
	shared := p.Get()
	assert.GreaterOrEqual(t, shared.Visited.Capacity(), 4096)
	assert.Len(t, shared.Query, 8)
	p.Put(shared)
}

func TestPoolConcurrentSlots(t *testing.T) {
	p := NewPool(8, 16, 8, 2)

	var wg sync.WaitGroup
	got := make([]*Context, p.Slots())
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := p.Slot(i)
			if err == nil {
				c.Visited.Visit(uint32(i))
				got[i] = c
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[*Context]bool)
	for i, c := range got {
		require.NotNil(t, c)
		assert.True(t, c.Visited.Visited(uint32(i)))
		seen[c] = true
	}
	assert.Len(t, seen, len(got))
}
