package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rescuedash/shelter-dashboard/internal/cache"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
)

func newDashboardFixture(t *testing.T) (DashboardService, *mockRecordRepository) {
	t.Helper()
	c, err := cache.NewLRUSearchCache(cache.DefaultCapacity)
	require.NoError(t, err)
	repo := &mockRecordRepository{}
	search := NewSearchService(&mockSearchRepository{}, c, 0)
	return NewDashboardService(repo, search), repo
}

func TestDashboardService_ListRecordsUsesPreset(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	want := []domain.Record{{domain.FieldName: "Rex"}}
	repo.On("List", mock.Anything, domain.FilterFor(domain.RescueMountain), 25).Return(want, nil).Once()
	repo.On("List", mock.Anything, domain.Filter{}, 0).Return([]domain.Record{}, nil).Once()

	got, err := svc.ListRecords(context.Background(), domain.RescueMountain, 25)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = svc.ListRecords(context.Background(), "Unknown preset", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	repo.AssertExpectations(t)
}

func TestDashboardService_Stats(t *testing.T) {
	svc, repo := newDashboardFixture(t)

	repo.On("Count", mock.Anything, domain.Filter{}).Return(int64(42), nil).Once()

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalDocuments)
	assert.Equal(t, cache.DefaultCapacity, stats.Cache.Capacity)
}

func TestDashboardService_Location(t *testing.T) {
	ctx := context.Background()
	water := domain.FilterFor(domain.RescueWater)

	t.Run("found", func(t *testing.T) {
		svc, repo := newDashboardFixture(t)
		repo.On("FindAt", mock.Anything, water, 3).Return(domain.Record{
			domain.FieldLocationLat:  30.5,
			domain.FieldLocationLong: -97.25,
			domain.FieldBreed:        "Newfoundland",
			domain.FieldName:         "Rex",
		}, nil).Once()

		loc, err := svc.Location(ctx, domain.RescueWater, 3)
		require.NoError(t, err)
		assert.Equal(t, &domain.Location{Lat: 30.5, Lon: -97.25, Breed: "Newfoundland", Name: "Rex"}, loc)
	})

	t.Run("negative index", func(t *testing.T) {
		svc, repo := newDashboardFixture(t)
		_, err := svc.Location(ctx, domain.RescueWater, -1)
		assert.ErrorIs(t, err, ErrInvalidRowIndex)
		repo.AssertNotCalled(t, "FindAt", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("out of range", func(t *testing.T) {
		svc, repo := newDashboardFixture(t)
		repo.On("FindAt", mock.Anything, water, 99).Return(nil, repository.ErrRecordNotFound).Once()
		_, err := svc.Location(ctx, domain.RescueWater, 99)
		assert.ErrorIs(t, err, ErrInvalidRowIndex)
	})

	t.Run("missing coordinates", func(t *testing.T) {
		svc, repo := newDashboardFixture(t)
		repo.On("FindAt", mock.Anything, water, 0).Return(domain.Record{
			domain.FieldLocationLat:  nil,
			domain.FieldLocationLong: -97.0,
		}, nil).Once()
		_, err := svc.Location(ctx, domain.RescueWater, 0)
		assert.ErrorIs(t, err, ErrNoLocation)
	})
}

func TestDashboardService_Summary(t *testing.T) {
	svc, repo := newDashboardFixture(t)
	filter := domain.FilterFor(domain.RescueDisaster)

	repo.On("Count", mock.Anything, domain.Filter{}).Return(int64(100), nil).Once()
	repo.On("Count", mock.Anything, filter).Return(int64(7), nil).Once()
	repo.On("OutcomeTypeCounts", mock.Anything, filter).Return([]domain.OutcomeTypeCount{{OutcomeType: "Adoption", Count: 7}}, nil).Once()
	repo.On("AnimalTypeCounts", mock.Anything, filter).Return([]domain.AnimalTypeCount{{AnimalType: "Dog", Count: 7, UniqueBreeds: 3}}, nil).Once()
	repo.On("BreedCounts", mock.Anything, filter, TopBreeds).Return([]domain.BreedCount{{Breed: "Bloodhound", Count: 7}}, nil).Once()
	repo.On("MonthlyCounts", mock.Anything, filter).Return([]domain.MonthlyCount{{Year: 2019, Month: 5, Count: 7}}, nil).Once()

	summary, err := svc.Summary(context.Background(), domain.RescueDisaster)
	require.NoError(t, err)
	assert.Equal(t, domain.RescueDisaster, summary.Filter)
	assert.Equal(t, int64(100), summary.Stats.TotalDocuments)
	assert.Equal(t, int64(7), summary.FilteredRows)
	assert.Len(t, summary.OutcomeTypes, 1)
	assert.Len(t, summary.AnimalTypes, 1)
	assert.Len(t, summary.Breeds, 1)
	assert.Len(t, summary.Monthly, 1)
	repo.AssertExpectations(t)
}

func TestDashboardService_SummaryError(t *testing.T) {
	svc, repo := newDashboardFixture(t)
	boom := errors.New("db down")

	repo.On("Count", mock.Anything, mock.Anything).Return(int64(0), boom)
	repo.On("OutcomeTypeCounts", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("AnimalTypeCounts", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("BreedCounts", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("MonthlyCounts", mock.Anything, mock.Anything).Return(nil, nil)

	summary, err := svc.Summary(context.Background(), domain.RescueAll)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, summary)
}
