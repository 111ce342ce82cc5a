package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/pkg/storage"
)

type exportFixture struct {
	svc    *exportServiceImpl
	repo   *mockRecordRepository
	search *mockSearchRepository
	store  *mockStorage
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	f := &exportFixture{
		repo:   &mockRecordRepository{},
		search: &mockSearchRepository{},
		store:  &mockStorage{},
	}
	f.svc = NewExportService(f.repo, f.search, f.store, time.Hour).(*exportServiceImpl)
	f.svc.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC) }
	return f
}

func TestExportService_ExportCSVByFilter(t *testing.T) {
	f := newExportFixture(t)

	f.repo.On("List", mock.Anything, domain.FilterFor(domain.RescueWater), 0).Return([]domain.Record{
		{domain.FieldID: "1", domain.FieldName: "Rex", domain.FieldBreed: "Newfoundland", domain.FieldAgeUponOutcomeInWeeks: 52.5},
		{domain.FieldID: "2", domain.FieldName: nil, "microchip": "A,1"},
	}, nil).Once()

	export, err := f.svc.ExportCSV(context.Background(), domain.RescueWater, "")
	require.NoError(t, err)
	assert.Equal(t, "animal_shelter_data_Water_Rescue.csv", export.Filename)
	assert.Equal(t, 2, export.Rows)

	lines := strings.Split(strings.TrimSpace(string(export.Data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "age_upon_outcome_in_weeks,breed,microchip,name", lines[0])
	assert.Equal(t, "52.5,Newfoundland,,Rex", lines[1])
	assert.Equal(t, `,,"A,1",`, lines[2])
	f.search.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportService_ExportCSVBySearch(t *testing.T) {
	f := newExportFixture(t)

	f.search.On("Search", mock.Anything, "beagle", exportSearchLimit).Return([]domain.Record{
		{domain.FieldID: "1", domain.FieldBreed: "Beagle"},
	}, nil).Once()

	export, err := f.svc.ExportCSV(context.Background(), "", "  beagle ")
	require.NoError(t, err)
	assert.Equal(t, "animal_shelter_data_All.csv", export.Filename)
	assert.Equal(t, "breed\nBeagle\n", string(export.Data))
	f.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportService_ExportCSVNoData(t *testing.T) {
	f := newExportFixture(t)
	f.repo.On("List", mock.Anything, domain.Filter{}, 0).Return([]domain.Record{}, nil).Once()

	_, err := f.svc.ExportCSV(context.Background(), domain.RescueAll, "")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestExportService_Archive(t *testing.T) {
	f := newExportFixture(t)
	key := "exports/20240309T140506Z_animal_shelter_data_All.csv"

	f.repo.On("List", mock.Anything, domain.Filter{}, 0).Return([]domain.Record{{domain.FieldName: "Rex"}}, nil).Once()
	f.store.On("Write", mock.Anything, key, "name\nRex\n", int64(9), "text/csv").Return(nil).Once()
	f.store.On("GetURL", mock.Anything, key, time.Hour).Return("/files/"+key, nil).Once()

	file, err := f.svc.Archive(context.Background(), domain.RescueAll, "")
	require.NoError(t, err)
	assert.Equal(t, key, file.Key)
	assert.Equal(t, "20240309T140506Z_animal_shelter_data_All.csv", file.Name)
	assert.Equal(t, int64(9), file.Size)
	assert.Equal(t, "/files/"+key, file.URL)
	f.store.AssertExpectations(t)
}

func TestExportService_ArchiveWriteFailure(t *testing.T) {
	f := newExportFixture(t)
	boom := errors.New("bucket gone")

	f.repo.On("List", mock.Anything, domain.Filter{}, 0).Return([]domain.Record{{domain.FieldName: "Rex"}}, nil).Once()
	f.store.On("Write", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(boom).Once()

	_, err := f.svc.Archive(context.Background(), domain.RescueAll, "")
	assert.ErrorIs(t, err, boom)
	f.store.AssertNotCalled(t, "GetURL", mock.Anything, mock.Anything, mock.Anything)
}

func TestExportService_ListArchived(t *testing.T) {
	f := newExportFixture(t)
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	f.store.On("List", mock.Anything, ExportPrefix).Return([]storage.FileInfo{
		{Key: "exports/a.csv", Size: 1, LastModified: older},
		{Key: "exports/b.csv", Size: 2, LastModified: newer},
	}, nil).Once()

	files, err := f.svc.ListArchived(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "exports/b.csv", files[0].Key)
	assert.Equal(t, "b.csv", files[0].Name)
	assert.Equal(t, "exports/a.csv", files[1].Key)
}

func TestExportService_OpenAndDeleteArchived(t *testing.T) {
	ctx := context.Background()
	f := newExportFixture(t)

	f.store.On("Read", mock.Anything, "exports/a.csv").Return(io.NopCloser(strings.NewReader("name\n")), nil).Once()
	f.store.On("Read", mock.Anything, "exports/missing.csv").Return(nil, fmt.Errorf("%w: exports/missing.csv", storage.ErrNotFound)).Once()
	f.store.On("Delete", mock.Anything, "exports/a.csv").Return(nil).Once()
	f.store.On("Delete", mock.Anything, "exports/missing.csv").Return(storage.ErrNotFound).Once()

	rc, err := f.svc.OpenArchived(ctx, "a.csv")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "name\n", string(data))

	_, err = f.svc.OpenArchived(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrExportNotFound)

	_, err = f.svc.OpenArchived(ctx, "../config.yaml")
	assert.ErrorIs(t, err, ErrInvalidExport)
	_, err = f.svc.OpenArchived(ctx, "nested/a.csv")
	assert.ErrorIs(t, err, ErrInvalidExport)
	_, err = f.svc.OpenArchived(ctx, "notes.txt")
	assert.ErrorIs(t, err, ErrInvalidExport)

	require.NoError(t, f.svc.DeleteArchived(ctx, "a.csv"))
	assert.ErrorIs(t, f.svc.DeleteArchived(ctx, "missing.csv"), ErrExportNotFound)
	assert.ErrorIs(t, f.svc.DeleteArchived(ctx, ""), ErrInvalidExport)
}
