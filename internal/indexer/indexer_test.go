package indexer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
)

type mockSearchIndex struct{ mock.Mock }

func (m *mockSearchIndex) EnsureIndex(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockSearchIndex) Index(ctx context.Context, rec domain.Record) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockSearchIndex) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSearchIndex) BulkIndex(ctx context.Context, recs []domain.Record) error {
	return m.Called(ctx, recs).Error(0)
}

// batchRepository serves FindInBatches from a fixed slice; the embedded
// interface panics on any other call.
type batchRepository struct {
	repository.RecordRepository
	records []domain.Record
}

func (r *batchRepository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []domain.Record) error) error {
	for start := 0; start < len(r.records); start += batchSize {
		end := start + batchSize
		if end > len(r.records) {
			end = len(r.records)
		}
		if err := fn(r.records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

type fakeSubscriber struct {
	mu      sync.Mutex
	ch      chan *pubsub.Event
	pattern string
	err     error
}

func (f *fakeSubscriber) SubscribePattern(ctx context.Context, pattern string) (<-chan *pubsub.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pattern = pattern
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

func recordEvent(t *testing.T, eventType, id string, rec domain.Record) *pubsub.Event {
	t.Helper()
	var payload interface{}
	if rec != nil {
		payload = pubsub.RecordChangedPayload{Record: rec}
	}
	evt, err := pubsub.NewEvent(eventType, id, payload)
	require.NoError(t, err)
	return evt
}

func TestIndexer_HandleCreatedAndUpdated(t *testing.T) {
	ctx := context.Background()
	idx := &mockSearchIndex{}
	ix := NewIndexer(idx, nil, nil, 0)

	idx.On("Index", mock.Anything, domain.Record{domain.FieldID: "r1", domain.FieldName: "Rex"}).Return(nil).Twice()

	require.NoError(t, ix.Handle(ctx, recordEvent(t, pubsub.EventRecordCreated, "r1", domain.Record{domain.FieldID: "r1", domain.FieldName: "Rex"})))
	// The event's record ID fills in a payload without one.
	require.NoError(t, ix.Handle(ctx, recordEvent(t, pubsub.EventRecordUpdated, "r1", domain.Record{domain.FieldName: "Rex"})))

	idx.AssertExpectations(t)
}

func TestIndexer_HandleDeleted(t *testing.T) {
	idx := &mockSearchIndex{}
	ix := NewIndexer(idx, nil, nil, 0)

	idx.On("Delete", mock.Anything, "r1").Return(nil).Once()

	require.NoError(t, ix.Handle(context.Background(), recordEvent(t, pubsub.EventRecordDeleted, "r1", nil)))
	idx.AssertExpectations(t)
}

func TestIndexer_HandleRejectsEmptyPayload(t *testing.T) {
	idx := &mockSearchIndex{}
	ix := NewIndexer(idx, nil, nil, 0)

	err := ix.Handle(context.Background(), recordEvent(t, pubsub.EventRecordCreated, "r1", nil))
	assert.ErrorIs(t, err, ErrMissingPayload)

	err = ix.Handle(context.Background(), &pubsub.Event{Type: pubsub.EventRecordUpdated, RecordID: "r1", Payload: []byte(`{"record":`)})
	assert.Error(t, err)

	idx.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}

func TestIndexer_HandleIgnoresUnknownEvents(t *testing.T) {
	idx := &mockSearchIndex{}
	ix := NewIndexer(idx, nil, nil, 0)

	assert.NoError(t, ix.Handle(context.Background(), &pubsub.Event{Type: "record.archived", RecordID: "r1"}))
	idx.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
	idx.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestIndexer_HandlePropagatesIndexError(t *testing.T) {
	idx := &mockSearchIndex{}
	ix := NewIndexer(idx, nil, nil, 0)
	boom := errors.New("cluster red")

	idx.On("Delete", mock.Anything, "r1").Return(boom).Once()

	assert.ErrorIs(t, ix.Handle(context.Background(), recordEvent(t, pubsub.EventRecordDeleted, "r1", nil)), boom)
}

func TestIndexer_Backfill(t *testing.T) {
	recs := make([]domain.Record, 5)
	for i := range recs {
		recs[i] = domain.Record{domain.FieldID: string(rune('a' + i))}
	}

	idx := &mockSearchIndex{}
	idx.On("BulkIndex", mock.Anything, recs[0:2]).Return(nil).Once()
	idx.On("BulkIndex", mock.Anything, recs[2:4]).Return(nil).Once()
	idx.On("BulkIndex", mock.Anything, recs[4:5]).Return(nil).Once()

	ix := NewIndexer(idx, &batchRepository{records: recs}, nil, 2)

	n, err := ix.Backfill(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	idx.AssertExpectations(t)
}

func TestIndexer_BackfillStopsOnError(t *testing.T) {
	recs := []domain.Record{{domain.FieldID: "a"}, {domain.FieldID: "b"}, {domain.FieldID: "c"}}
	boom := errors.New("bulk rejected")

	idx := &mockSearchIndex{}
	idx.On("BulkIndex", mock.Anything, recs[0:2]).Return(nil).Once()
	idx.On("BulkIndex", mock.Anything, recs[2:3]).Return(boom).Once()

	ix := NewIndexer(idx, &batchRepository{records: recs}, nil, 2)

	n, err := ix.Backfill(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, n)
}

func TestIndexer_RunAppliesEventsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	idx := &mockSearchIndex{}
	applied := make(chan string, 2)
	idx.On("Delete", mock.Anything, mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		applied <- args.String(1)
	})

	sub := &fakeSubscriber{ch: make(chan *pubsub.Event, 2)}
	ix := NewIndexer(idx, nil, sub, 0)

	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx) }()

	sub.ch <- recordEvent(t, pubsub.EventRecordDeleted, "r1", nil)
	sub.ch <- recordEvent(t, pubsub.EventRecordDeleted, "r2", nil)

	for _, want := range []string{"r1", "r2"} {
		select {
		case got := <-applied:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatal("event not applied")
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("indexer did not stop")
	}

	sub.mu.Lock()
	assert.Equal(t, pubsub.PatternRecordChanged, sub.pattern)
	sub.mu.Unlock()
}

func TestIndexer_RunReturnsOnClosedSubscription(t *testing.T) {
	sub := &fakeSubscriber{ch: make(chan *pubsub.Event)}
	close(sub.ch)

	ix := NewIndexer(&mockSearchIndex{}, nil, sub, 0)
	assert.NoError(t, ix.Run(context.Background()))
}

func TestIndexer_RunSubscribeError(t *testing.T) {
	boom := errors.New("broker unreachable")
	ix := NewIndexer(&mockSearchIndex{}, nil, &fakeSubscriber{err: boom}, 0)

	assert.ErrorIs(t, ix.Run(context.Background()), boom)
}
