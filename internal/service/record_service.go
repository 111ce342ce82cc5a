package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rescuedash/shelter-dashboard/internal/audit"
	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/internal/repository"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
	"github.com/rescuedash/shelter-dashboard/pkg/pubsub"
)

const publishTimeout = 5 * time.Second

// RecordValidator checks a record payload before it is stored.
type RecordValidator interface {
	Validate(rec domain.Record) error
}

// recordServiceImpl implements RecordService interface.
type recordServiceImpl struct {
	repo      repository.RecordRepository
	validator RecordValidator
	publisher pubsub.Publisher
}

// NewRecordService creates a new record service. publisher may be nil, in
// which case no change events are emitted.
func NewRecordService(repo repository.RecordRepository, validator RecordValidator, publisher pubsub.Publisher) RecordService {
	return &recordServiceImpl{
		repo:      repo,
		validator: validator,
		publisher: publisher,
	}
}

// Create validates and stores a new record, returning it with its id.
func (s *recordServiceImpl) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	rec = rec.Clone()
	delete(rec, domain.FieldID)

	if err := s.validate(rec); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	audit.Log(ctx, audit.ActionCreateRecord, id, "record created")
	s.publish(ctx, pubsub.EventRecordCreated, id, created)

	return created, nil
}

// Get retrieves a record by ID.
func (s *recordServiceImpl) Get(ctx context.Context, id string) (domain.Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err)
	}
	return rec, nil
}

// Update sets the given fields on a record and leaves the others untouched.
func (s *recordServiceImpl) Update(ctx context.Context, id string, fields domain.Record) (domain.Record, error) {
	fields = fields.Clone()
	delete(fields, domain.FieldID)

	if err := s.validate(fields); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, s.mapError(err)
	}

	audit.LogWithDetail(ctx, audit.ActionUpdateRecord, id, fmt.Sprintf("%d fields", len(fields)), "record updated")
	s.publish(ctx, pubsub.EventRecordUpdated, id, updated)

	return updated, nil
}

// Delete removes a record.
func (s *recordServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapError(err)
	}

	audit.Log(ctx, audit.ActionDeleteRecord, id, "record deleted")
	s.publish(ctx, pubsub.EventRecordDeleted, id, nil)

	return nil
}

func (s *recordServiceImpl) validate(rec domain.Record) error {
	if s.validator == nil {
		return nil
	}
	if err := s.validator.Validate(rec); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}

func (s *recordServiceImpl) mapError(err error) error {
	if errors.Is(err, repository.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// publish sends a record change event before the mutation returns, so events
// for one record leave in the order their writes completed. Delivery is best
// effort: failures are logged and never reach the caller.
func (s *recordServiceImpl) publish(ctx context.Context, eventType, id string, rec domain.Record) {
	if s.publisher == nil {
		return
	}

	l := log.Ctx(ctx)

	var payload interface{}
	if rec != nil {
		payload = pubsub.RecordChangedPayload{Record: rec}
	}
	event, err := pubsub.NewEvent(eventType, id, payload)
	if err != nil {
		l.Warn().Err(err).Str(log.FieldRecordID, id).Msg("failed to build record event")
		return
	}

	// The write has already committed; a client disconnect must not drop its event.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pctx, pubsub.RecordChangedChannel(id), event); err != nil {
		l.Warn().Err(err).Str(log.FieldRecordID, id).Str(log.FieldEvent, eventType).Msg("failed to publish record event")
	}
}
