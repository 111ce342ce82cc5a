package repository

import (
	"context"
	"errors"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
)

var (
	ErrRecordNotFound = errors.New("record not found")
)

// RecordRepository defines the interface for outcome record persistence.
type RecordRepository interface {
	Create(ctx context.Context, rec domain.Record) (string, error)
	GetByID(ctx context.Context, id string) (domain.Record, error)
	Update(ctx context.Context, id string, fields domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id string) error

	List(ctx context.Context, filter domain.Filter, limit int) ([]domain.Record, error)
	Count(ctx context.Context, filter domain.Filter) (int64, error)
	// FindAt returns the record at offset in the ordering used by List.
	FindAt(ctx context.Context, filter domain.Filter, offset int) (domain.Record, error)
	// FindInBatches streams every record in batches of batchSize.
	FindInBatches(ctx context.Context, batchSize int, fn func(batch []domain.Record) error) error

	OutcomeTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.OutcomeTypeCount, error)
	AnimalTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.AnimalTypeCount, error)
	BreedCounts(ctx context.Context, filter domain.Filter, limit int) ([]domain.BreedCount, error)
	MonthlyCounts(ctx context.Context, filter domain.Filter) ([]domain.MonthlyCount, error)
}

// SearchRepository is a full-text search provider over outcome records.
// Results are ordered by relevance.
type SearchRepository interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Record, error)
}

// SearchIndex maintains the documents a SearchRepository searches.
type SearchIndex interface {
	EnsureIndex(ctx context.Context) error
	Index(ctx context.Context, rec domain.Record) error
	Delete(ctx context.Context, id string) error
	BulkIndex(ctx context.Context, recs []domain.Record) error
}
