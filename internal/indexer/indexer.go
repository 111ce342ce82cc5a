package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
)

// DefaultBatchSize is the number of records sent per bulk request during backfill.
const DefaultBatchSize = 500

// ErrMissingPayload is returned for create and update events that carry no record.
var ErrMissingPayload = errors.New("record event has no payload")

// Indexer keeps the search index in step with the record store.
type Indexer struct {
	index     repository.SearchIndex
	records   repository.RecordRepository
	events    pubsub.Subscriber
	batchSize int
}

// NewIndexer creates a new indexer. records is only needed for Backfill and
// events only for Run.
func NewIndexer(index repository.SearchIndex, records repository.RecordRepository, events pubsub.Subscriber, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		index:     index,
		records:   records,
		events:    events,
		batchSize: batchSize,
	}
}

// Backfill streams every stored record into the search index and returns the
// number of records sent.
func (i *Indexer) Backfill(ctx context.Context) (int, error) {
	l := log.Ctx(ctx)

	total := 0
	err := i.records.FindInBatches(ctx, i.batchSize, func(batch []domain.Record) error {
		if err := i.index.BulkIndex(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		l.Debug().Int(log.FieldCount, total).Msg("backfill progress")
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("backfill failed after %d records: %w", total, err)
	}

	l.Info().Int(log.FieldCount, total).Msg("backfill complete")
	return total, nil
}

// Run subscribes to record change events and applies them until ctx is
// cancelled or the subscription closes. Events that fail to apply are logged
// and skipped.
func (i *Indexer) Run(ctx context.Context) error {
	l := log.Ctx(ctx)

	events, err := i.events.SubscribePattern(ctx, pubsub.PatternRecordChanged)
	if err != nil {
		return fmt.Errorf("failed to subscribe to record events: %w", err)
	}

	l.Info().Str(log.FieldChannel, pubsub.PatternRecordChanged).Msg("indexer started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("indexer stopping")
			return nil
		case evt, ok := <-events:
			if !ok {
				l.Info().Msg("record event subscription closed")
				return nil
			}
			if err := i.Handle(ctx, evt); err != nil {
				l.Error().Err(err).
					Str(log.FieldRecordID, evt.RecordID).
					Str(log.FieldEvent, evt.Type).
					Msg("failed to apply record event")
			}
		}
	}
}

// Handle applies a single record event to the search index. Unknown event
// types are ignored.
func (i *Indexer) Handle(ctx context.Context, evt *pubsub.Event) error {
	switch evt.Type {
	case pubsub.EventRecordCreated, pubsub.EventRecordUpdated:
		if len(evt.Payload) == 0 {
			return ErrMissingPayload
		}
		var payload pubsub.RecordChangedPayload
		if err := evt.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("failed to decode record event: %w", err)
		}
		if payload.Record == nil {
			return ErrMissingPayload
		}

		rec := domain.Record(payload.Record)
		if rec.ID() == "" {
			rec[domain.FieldID] = evt.RecordID
		}
		return i.index.Index(ctx, rec)

	case pubsub.EventRecordDeleted:
		return i.index.Delete(ctx, evt.RecordID)

	default:
		l := log.Ctx(ctx)
		l.Debug().Str(log.FieldEvent, evt.Type).Msg("ignoring unknown record event")
		return nil
	}
}
