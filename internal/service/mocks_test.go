package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
	"github.com/rescuedash/shelter-dashboard/pkg/storage"
)

type mockSearchRepository struct {
	mock.Mock
}

func (m *mockSearchRepository) Search(ctx context.Context, query string, limit int) ([]domain.Record, error) {
	args := m.Called(ctx, query, limit)
	recs, _ := args.Get(0).([]domain.Record)
	return recs, args.Error(1)
}

type mockRecordRepository struct {
	mock.Mock
}

func (m *mockRecordRepository) Create(ctx context.Context, rec domain.Record) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *mockRecordRepository) GetByID(ctx context.Context, id string) (domain.Record, error) {
	args := m.Called(ctx, id)
	rec, _ := args.Get(0).(domain.Record)
	return rec, args.Error(1)
}

func (m *mockRecordRepository) Update(ctx context.Context, id string, fields domain.Record) (domain.Record, error) {
	args := m.Called(ctx, id, fields)
	rec, _ := args.Get(0).(domain.Record)
	return rec, args.Error(1)
}

func (m *mockRecordRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRecordRepository) List(ctx context.Context, filter domain.Filter, limit int) ([]domain.Record, error) {
	args := m.Called(ctx, filter, limit)
	recs, _ := args.Get(0).([]domain.Record)
	return recs, args.Error(1)
}

func (m *mockRecordRepository) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRecordRepository) FindAt(ctx context.Context, filter domain.Filter, offset int) (domain.Record, error) {
	args := m.Called(ctx, filter, offset)
	rec, _ := args.Get(0).(domain.Record)
	return rec, args.Error(1)
}

func (m *mockRecordRepository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []domain.Record) error) error {
	return m.Called(ctx, batchSize, fn).Error(0)
}

func (m *mockRecordRepository) OutcomeTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.OutcomeTypeCount, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]domain.OutcomeTypeCount)
	return out, args.Error(1)
}

func (m *mockRecordRepository) AnimalTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.AnimalTypeCount, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]domain.AnimalTypeCount)
	return out, args.Error(1)
}

func (m *mockRecordRepository) BreedCounts(ctx context.Context, filter domain.Filter, limit int) ([]domain.BreedCount, error) {
	args := m.Called(ctx, filter, limit)
	out, _ := args.Get(0).([]domain.BreedCount)
	return out, args.Error(1)
}

func (m *mockRecordRepository) MonthlyCounts(ctx context.Context, filter domain.Filter) ([]domain.MonthlyCount, error) {
	args := m.Called(ctx, filter)
	out, _ := args.Get(0).([]domain.MonthlyCount)
	return out, args.Error(1)
}

// recordingPublisher captures published events along with the context each
// was published under.
type recordingPublisher struct {
	mu       sync.Mutex
	events   []*pubsub.Event
	channels []string
	ctxErrs  []error
	err      error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{}
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.channels = append(p.channels, channel)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	p.mu.Unlock()
	return p.err
}

func (p *recordingPublisher) snapshot() ([]string, []*pubsub.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.channels...), append([]*pubsub.Event(nil), p.events...)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, _ := io.ReadAll(r)
	return m.Called(ctx, key, string(data), size, contentType).Error(0)
}

func (m *mockStorage) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	args := m.Called(ctx, prefix)
	out, _ := args.Get(0).([]storage.FileInfo)
	return out, args.Error(1)
}

func (m *mockStorage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) GetURL(ctx context.Context, key string, expires time.Duration) (string, error) {
	args := m.Called(ctx, key, expires)
	return args.String(0), args.Error(1)
}
