package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
)

func records(ids ...int) []domain.Record {
	out := make([]domain.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Record{domain.FieldRecNum: id})
	}
	return out
}

func newCache(t *testing.T, capacity int) *LRUSearchCache {
	t.Helper()
	c, err := NewLRUSearchCache(capacity)
	require.NoError(t, err)
	return c
}

func TestNewLRUSearchCache_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1, -50} {
		c, err := NewLRUSearchCache(capacity)
		assert.Nil(t, c)
		assert.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestNewLRUSearchCache(t *testing.T) {
	c := newCache(t, DefaultCapacity)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, DefaultCapacity, c.Capacity())
	assert.Empty(t, c.Keys())
}

func TestLRUSearchCache_CapacityTwoScenario(t *testing.T) {
	c := newCache(t, 2)

	c.Put("a", records(1))
	c.Put("b", records(2))
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, records(1), got)
	assert.Equal(t, []string{"b", "a"}, c.Keys())

	c.Put("c", records(3))
	assert.Equal(t, []string{"a", "c"}, c.Keys())

	_, ok = c.Get("b")
	assert.False(t, ok)

	got, ok = c.Get("a")
	require.True(t, ok)
	assert.Equal(t, records(1), got)

	got, ok = c.Get("c")
	require.True(t, ok)
	assert.Equal(t, records(3), got)
}

func TestLRUSearchCache_NeverExceedsCapacity(t *testing.T) {
	c := newCache(t, 5)

	for i := 0; i < 100; i++ {
		c.Put(fmt.Sprintf("q%d", i), records(i))
		assert.LessOrEqual(t, c.Len(), c.Capacity())
	}
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []string{"q95", "q96", "q97", "q98", "q99"}, c.Keys())
}

func TestLRUSearchCache_EvictsLeastRecentlyTouched(t *testing.T) {
	c := newCache(t, 3)

	c.Put("a", records(1))
	c.Put("b", records(2))
	c.Put("c", records(3))

	// Overwriting a touches it as well.
	c.Put("a", records(10))
	c.Put("d", records(4))

	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"c", "a", "d"}, c.Keys())
}

func TestLRUSearchCache_ReadPromotes(t *testing.T) {
	c := newCache(t, 3)

	c.Put("A", records(1))
	c.Put("B", records(2))
	c.Put("C", records(3))

	_, ok := c.Get("A")
	require.True(t, ok)

	c.Put("D", records(4))

	_, ok = c.Get("B")
	assert.False(t, ok, "B should have been evicted")
	_, ok = c.Get("A")
	assert.True(t, ok, "A was promoted by the read")
}

func TestLRUSearchCache_OverwriteDoesNotGrow(t *testing.T) {
	c := newCache(t, 3)

	c.Put("k", records(1))
	c.Put("k", records(2))

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, records(2), got)
	assert.Equal(t, uint64(0), c.Stats().Evictions)
}

func TestLRUSearchCache_IdempotentHit(t *testing.T) {
	c := newCache(t, 3)
	c.Put("k", records(7, 8))

	for i := 0; i < 5; i++ {
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, records(7, 8), got)
		assert.Equal(t, 1, c.Len())
	}
}

func TestLRUSearchCache_EmptyResultIsAHit(t *testing.T) {
	c := newCache(t, 2)

	c.Put("empty", []domain.Record{})
	c.Put("nil", nil)

	got, ok := c.Get("empty")
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, ok = c.Get("nil")
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, ok = c.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestLRUSearchCache_EmptyKey(t *testing.T) {
	c := newCache(t, 2)

	c.Put("", records(1))
	got, ok := c.Get("")
	require.True(t, ok)
	assert.Equal(t, records(1), got)
}

func TestLRUSearchCache_KeysDoesNotPromote(t *testing.T) {
	c := newCache(t, 2)
	c.Put("a", records(1))
	c.Put("b", records(2))

	assert.Equal(t, []string{"a", "b"}, c.Keys())
	c.Put("c", records(3))

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestLRUSearchCache_Stats(t *testing.T) {
	c := newCache(t, 2)

	c.Put("a", records(1))
	c.Put("b", records(2))
	c.Get("a")
	c.Get("zzz")
	c.Put("c", records(3))

	assert.Equal(t, domain.CacheStats{
		Capacity:  2,
		Size:      2,
		Hits:      1,
		Misses:    1,
		Evictions: 1,
	}, c.Stats())
}

func TestLRUSearchCache_Concurrent(t *testing.T) {
	const (
		capacity = 16
		workers  = 8
		ops      = 500
	)
	c := newCache(t, capacity)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				key := fmt.Sprintf("q%d", (w*ops+i)%40)
				if i%3 == 0 {
					c.Put(key, records(i))
					continue
				}
				if got, ok := c.Get(key); ok {
					assert.NotNil(t, got)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), capacity)
	assert.Len(t, c.Keys(), c.Len())
}

func TestLRUSearchCache_ImplementsSearchCache(t *testing.T) {
	var _ SearchCache = newCache(t, 1)
}
