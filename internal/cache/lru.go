package cache

import (
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
)

// DefaultCapacity is the number of distinct queries kept when none is configured.
const DefaultCapacity = 50

// ErrInvalidCapacity is returned when a cache is created with a non-positive capacity.
var ErrInvalidCapacity = errors.New("cache capacity must be positive")

// LRUSearchCache is a bounded, thread-safe least-recently-used search cache.
// Get and Put both promote the key to most-recent; inserting a new key into a
// full cache evicts exactly the least-recent one.
type LRUSearchCache struct {
	cache    *lru.Cache[string, []domain.Record]
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewLRUSearchCache creates a cache holding at most capacity keys.
func NewLRUSearchCache(capacity int) (*LRUSearchCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	c := &LRUSearchCache{capacity: capacity}

	inner, err := lru.NewWithEvict[string, []domain.Record](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	c.cache = inner

	return c, nil
}

// Get returns the records stored under key and marks it most-recently used.
func (c *LRUSearchCache) Get(key string) ([]domain.Record, bool) {
	records, ok := c.cache.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return records, true
}

// Put stores records under key as the most-recently used entry, evicting the
// least-recently used entry when a new key would exceed capacity.
func (c *LRUSearchCache) Put(key string, records []domain.Record) {
	if records == nil {
		records = []domain.Record{}
	}
	c.cache.Add(key, records)
}

// Len returns the number of cached keys.
func (c *LRUSearchCache) Len() int {
	return c.cache.Len()
}

// Capacity returns the maximum number of cached keys.
func (c *LRUSearchCache) Capacity() int {
	return c.capacity
}

// Keys returns the cached keys from least to most recently used. It does not
// change recency.
func (c *LRUSearchCache) Keys() []string {
	return c.cache.Keys()
}

// Stats returns a snapshot of the cache counters.
func (c *LRUSearchCache) Stats() domain.CacheStats {
	return domain.CacheStats{
		Capacity:  c.capacity,
		Size:      c.cache.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

func (c *LRUSearchCache) onEvict(key string, records []domain.Record) {
	c.evictions.Add(1)
	l := log.L()
	l.Debug().Str(log.FieldCacheKey, key).Int(log.FieldCount, len(records)).Msg("search cache evicted")
}
