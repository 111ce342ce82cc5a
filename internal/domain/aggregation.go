package domain

import "time"

// OutcomeTypeCount groups records by outcome type.
type OutcomeTypeCount struct {
	OutcomeType string   `json:"outcome_type"`
	Count       int64    `json:"count"`
	AvgAgeWeeks *float64 `json:"avg_age_weeks"`
}

// AnimalTypeCount groups records by animal type.
type AnimalTypeCount struct {
	AnimalType   string `json:"animal_type"`
	Count        int64  `json:"count"`
	UniqueBreeds int64  `json:"unique_breeds"`
}

// BreedCount groups records by breed.
type BreedCount struct {
	Breed        string   `json:"breed"`
	Count        int64    `json:"count"`
	AvgAgeWeeks  *float64 `json:"avg_age_weeks"`
	OutcomeTypes []string `json:"outcome_types"`
}

// MonthlyCount groups records by the year and month of their outcome.
type MonthlyCount struct {
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	Count        int64    `json:"count"`
	OutcomeTypes []string `json:"outcome_types"`
}

// Stats is the dashboard statistics payload.
type Stats struct {
	TotalDocuments int64      `json:"total_documents"`
	Cache          CacheStats `json:"cache"`
}

// Location is the map marker for a single row of a filtered listing.
type Location struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Breed string  `json:"breed"`
	Name  string  `json:"name"`
}

// Summary bundles the statistics and every aggregation for one filter.
type Summary struct {
	Filter       RescueType         `json:"filter_type"`
	Stats        Stats              `json:"stats"`
	FilteredRows int64              `json:"filtered_rows"`
	OutcomeTypes []OutcomeTypeCount `json:"outcome_types"`
	AnimalTypes  []AnimalTypeCount  `json:"animal_types"`
	Breeds       []BreedCount       `json:"breeds"`
	Monthly      []MonthlyCount     `json:"monthly"`
}

// ExportFile describes an archived CSV export.
type ExportFile struct {
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	URL          string    `json:"url,omitempty"`
}

// CSVExport is a rendered CSV download.
type CSVExport struct {
	Filename string
	Data     []byte
	Rows     int
}
