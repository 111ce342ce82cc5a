package service

import (
	"context"
	"errors"
	"io"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
)

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrInvalidRowIndex = errors.New("invalid row index")
	ErrNoLocation      = errors.New("record has no location")
	ErrNoData          = errors.New("no data to export")
	ErrExportNotFound  = errors.New("export not found")
	ErrInvalidExport   = errors.New("invalid export name")
)

// SearchService serves full-text search through the bounded result cache.
type SearchService interface {
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
	CacheStats() domain.CacheStats
}

// RecordService defines the record create/read/update/delete operations.
type RecordService interface {
	Create(ctx context.Context, rec domain.Record) (domain.Record, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	Update(ctx context.Context, id string, fields domain.Record) (domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// DashboardService answers the dashboard's filtered listings, map lookups and aggregations.
type DashboardService interface {
	ListRecords(ctx context.Context, rescue domain.RescueType, limit int) ([]domain.Record, error)
	Stats(ctx context.Context) (*domain.Stats, error)
	Location(ctx context.Context, rescue domain.RescueType, rowIndex int) (*domain.Location, error)
	OutcomeTypes(ctx context.Context, rescue domain.RescueType) ([]domain.OutcomeTypeCount, error)
	AnimalTypes(ctx context.Context, rescue domain.RescueType) ([]domain.AnimalTypeCount, error)
	Breeds(ctx context.Context, rescue domain.RescueType) ([]domain.BreedCount, error)
	Monthly(ctx context.Context, rescue domain.RescueType) ([]domain.MonthlyCount, error)
	Summary(ctx context.Context, rescue domain.RescueType) (*domain.Summary, error)
}

// ExportService renders CSV downloads and manages the export archive.
type ExportService interface {
	ExportCSV(ctx context.Context, rescue domain.RescueType, search string) (*domain.CSVExport, error)
	Archive(ctx context.Context, rescue domain.RescueType, search string) (*domain.ExportFile, error)
	ListArchived(ctx context.Context) ([]domain.ExportFile, error)
	OpenArchived(ctx context.Context, name string) (io.ReadCloser, error)
	DeleteArchived(ctx context.Context, name string) error
}
