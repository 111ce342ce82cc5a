package domain

// SearchRequest is the cached search request.
type SearchRequest struct {
	Query string `form:"q"`
}

// DashboardRequest selects a rescue preset for listings and aggregations.
type DashboardRequest struct {
	FilterType RescueType `form:"filter_type"`
	Limit      int        `form:"limit" binding:"omitempty,min=0"`
}

// LocationRequest selects one row of a filtered listing.
type LocationRequest struct {
	FilterType RescueType `form:"filter_type"`
	RowIndex   *int       `form:"row_index" binding:"required"`
}

// ExportRequest selects the records of a CSV export.
type ExportRequest struct {
	FilterType RescueType `form:"filter_type"`
	Search     string     `form:"search"`
}

// SearchResponse is the cached search response.
type SearchResponse struct {
	Query   string   `json:"query"`
	Results []Record `json:"results"`
	Count   int      `json:"count"`
	Cached  bool     `json:"cached"`
}

// CacheStats describes the search cache.
type CacheStats struct {
	Capacity  int    `json:"capacity"`
	Size      int    `json:"size"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}
