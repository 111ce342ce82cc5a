package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
)

// TopBreeds is the number of breed groups returned by the breed aggregation.
const TopBreeds = 20

type dashboardServiceImpl struct {
	repo   repository.RecordRepository
	search SearchService
}

// NewDashboardService creates a new dashboard service. search supplies the
// cache statistics reported by Stats.
func NewDashboardService(repo repository.RecordRepository, search SearchService) DashboardService {
	return &dashboardServiceImpl{
		repo:   repo,
		search: search,
	}
}

func (s *dashboardServiceImpl) ListRecords(ctx context.Context, rescue domain.RescueType, limit int) ([]domain.Record, error) {
	return s.repo.List(ctx, domain.FilterFor(rescue), limit)
}

func (s *dashboardServiceImpl) Stats(ctx context.Context) (*domain.Stats, error) {
	total, err := s.repo.Count(ctx, domain.Filter{})
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{TotalDocuments: total}
	if s.search != nil {
		stats.Cache = s.search.CacheStats()
	}
	return stats, nil
}

// Location returns the map marker for the rowIndex-th record of the filtered listing.
func (s *dashboardServiceImpl) Location(ctx context.Context, rescue domain.RescueType, rowIndex int) (*domain.Location, error) {
	if rowIndex < 0 {
		return nil, ErrInvalidRowIndex
	}

	rec, err := s.repo.FindAt(ctx, domain.FilterFor(rescue), rowIndex)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrInvalidRowIndex
		}
		return nil, err
	}

	lat, okLat := rec.Float(domain.FieldLocationLat)
	lon, okLon := rec.Float(domain.FieldLocationLong)
	if !okLat || !okLon {
		return nil, ErrNoLocation
	}

	return &domain.Location{
		Lat:   lat,
		Lon:   lon,
		Breed: rec.String(domain.FieldBreed),
		Name:  rec.String(domain.FieldName),
	}, nil
}

func (s *dashboardServiceImpl) OutcomeTypes(ctx context.Context, rescue domain.RescueType) ([]domain.OutcomeTypeCount, error) {
	return s.repo.OutcomeTypeCounts(ctx, domain.FilterFor(rescue))
}

func (s *dashboardServiceImpl) AnimalTypes(ctx context.Context, rescue domain.RescueType) ([]domain.AnimalTypeCount, error) {
	return s.repo.AnimalTypeCounts(ctx, domain.FilterFor(rescue))
}

func (s *dashboardServiceImpl) Breeds(ctx context.Context, rescue domain.RescueType) ([]domain.BreedCount, error) {
	return s.repo.BreedCounts(ctx, domain.FilterFor(rescue), TopBreeds)
}

func (s *dashboardServiceImpl) Monthly(ctx context.Context, rescue domain.RescueType) ([]domain.MonthlyCount, error) {
	return s.repo.MonthlyCounts(ctx, domain.FilterFor(rescue))
}

// Summary computes the statistics and every aggregation concurrently.
func (s *dashboardServiceImpl) Summary(ctx context.Context, rescue domain.RescueType) (*domain.Summary, error) {
	filter := domain.FilterFor(rescue)
	summary := &domain.Summary{Filter: rescue}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := s.Stats(gCtx)
		if err != nil {
			return err
		}
		summary.Stats = *stats
		return nil
	})

	g.Go(func() error {
		var err error
		summary.FilteredRows, err = s.repo.Count(gCtx, filter)
		return err
	})

	g.Go(func() error {
		var err error
		summary.OutcomeTypes, err = s.repo.OutcomeTypeCounts(gCtx, filter)
		return err
	})

	g.Go(func() error {
		var err error
		summary.AnimalTypes, err = s.repo.AnimalTypeCounts(gCtx, filter)
		return err
	})

	g.Go(func() error {
		var err error
		summary.Breeds, err = s.repo.BreedCounts(gCtx, filter, TopBreeds)
		return err
	})

	g.Go(func() error {
		var err error
		summary.Monthly, err = s.repo.MonthlyCounts(gCtx, filter)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summary, nil
}
