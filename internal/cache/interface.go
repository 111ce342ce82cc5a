package cache

import (
	"github.com/rescuedash/shelter-dashboard/internal/domain"
)

// SearchCache memoizes search results keyed by normalized query text.
// A miss is reported by the boolean, never by an empty slice.
type SearchCache interface {
	Get(key string) ([]domain.Record, bool)
	Put(key string, records []domain.Record)
	Len() int
	Capacity() int
	Keys() []string
	Stats() domain.CacheStats
}
