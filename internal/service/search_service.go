package service

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/rescuedash/shelter-dashboard/internal/cache"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
)

// DefaultSearchLimit caps the number of records a search returns.
const DefaultSearchLimit = 100

type searchServiceImpl struct {
	provider repository.SearchRepository
	cache    cache.SearchCache
	limit    int
	sf       singleflight.Group
}

type searchResult struct {
	records []domain.Record
	cached  bool
}

// NewSearchService creates a search service that memoizes provider results in searchCache.
func NewSearchService(provider repository.SearchRepository, searchCache cache.SearchCache, limit int) SearchService {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &searchServiceImpl{
		provider: provider,
		cache:    searchCache,
		limit:    limit,
	}
}

// NormalizeQuery derives the cache key for a query: surrounding whitespace is
// trimmed and the text is Unicode case-folded.
func NormalizeQuery(q string) string {
	return cases.Fold().String(strings.TrimSpace(q))
}

// Search returns the cached results for the normalized query, or asks the
// provider and caches its answer. Concurrent misses on one key share a single
// provider call. Provider failures are returned as-is and never cached.
func (s *searchServiceImpl) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	key := NormalizeQuery(query)

	if key == "" {
		return &domain.SearchResponse{Query: query, Results: []domain.Record{}}, nil
	}

	// The flight outlives any single caller: it runs detached from ctx
	// cancellation, and each caller stops waiting when its own ctx ends.
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		l := log.Ctx(fctx)

		if records, ok := s.cache.Get(key); ok {
			l.Debug().Str(log.FieldCacheKey, key).Int(log.FieldCount, len(records)).Msg("search cache hit")
			return searchResult{records: records, cached: true}, nil
		}

		records, err := s.provider.Search(fctx, query, s.limit)
		if err != nil {
			return nil, err
		}
		if records == nil {
			records = []domain.Record{}
		}

		s.cache.Put(key, records)
		l.Debug().Str(log.FieldCacheKey, key).Int(log.FieldCount, len(records)).Msg("search cache miss, stored")

		return searchResult{records: records, cached: false}, nil
	})

	var v interface{}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		v = r.Val
	}

	res := v.(searchResult)
	return &domain.SearchResponse{
		Query:   query,
		Results: res.records,
		Count:   len(res.records),
		Cached:  res.cached,
	}, nil
}

func (s *searchServiceImpl) CacheStats() domain.CacheStats {
	return s.cache.Stats()
}
