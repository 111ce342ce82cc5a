package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rescuedash/shelter-dashboard/internal/domain"
	"github.com/rescuedash/shelter-dashboard/pkg/log"
)

// GormRecordRepository implements RecordRepository using GORM. It also serves
// as a SearchRepository when no search engine is configured.
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GORM-based record repository.
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// Create inserts a record under a freshly generated id and returns the id.
func (r *GormRecordRepository) Create(ctx context.Context, rec domain.Record) (string, error) {
	l := log.Ctx(ctx)

	model := domain.RecordToModel(rec)
	model.ID = uuid.New().String()

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Msg("failed to create record in db")
		return "", err
	}

	l.Debug().Str(log.FieldRecordID, model.ID).Msg("record created in db")
	return model.ID, nil
}

// GetByID retrieves a record by ID.
func (r *GormRecordRepository) GetByID(ctx context.Context, id string) (domain.Record, error) {
	model, err := r.first(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ToRecord(), nil
}

// Update merges fields into the stored record and returns the result.
func (r *GormRecordRepository) Update(ctx context.Context, id string, fields domain.Record) (domain.Record, error) {
	l := log.Ctx(ctx)

	model, err := r.first(ctx, id)
	if err != nil {
		return nil, err
	}

	model.Apply(fields)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldRecordID, id).Msg("failed to update record in db")
		return nil, err
	}

	l.Debug().Str(log.FieldRecordID, id).Msg("record updated in db")
	return model.ToRecord(), nil
}

// Delete removes a record.
func (r *GormRecordRepository) Delete(ctx context.Context, id string) error {
	l := log.Ctx(ctx)

	result := r.db.WithContext(ctx).Delete(&domain.RecordModel{}, "id = ?", id)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRecordID, id).Msg("failed to delete record in db")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	l.Debug().Str(log.FieldRecordID, id).Msg("record deleted in db")
	return nil
}

// List returns the records matching filter. A non-positive limit returns all of them.
func (r *GormRecordRepository) List(ctx context.Context, filter domain.Filter, limit int) ([]domain.Record, error) {
	l := log.Ctx(ctx)

	query := r.ordered(r.scoped(ctx, filter))
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []domain.RecordModel
	if err := query.Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list records from db")
		return nil, err
	}

	return toRecords(models), nil
}

// Count counts the records matching filter.
func (r *GormRecordRepository) Count(ctx context.Context, filter domain.Filter) (int64, error) {
	l := log.Ctx(ctx)

	var count int64
	if err := r.scoped(ctx, filter).Count(&count).Error; err != nil {
		l.Error().Err(err).Msg("failed to count records")
		return 0, err
	}
	return count, nil
}

// FindAt returns the record at offset in List order.
func (r *GormRecordRepository) FindAt(ctx context.Context, filter domain.Filter, offset int) (domain.Record, error) {
	l := log.Ctx(ctx)

	if offset < 0 {
		return nil, ErrRecordNotFound
	}

	var models []domain.RecordModel
	if err := r.ordered(r.scoped(ctx, filter)).Offset(offset).Limit(1).Find(&models).Error; err != nil {
		l.Error().Err(err).Int("offset", offset).Msg("failed to find record at offset")
		return nil, err
	}
	if len(models) == 0 {
		return nil, ErrRecordNotFound
	}

	return models[0].ToRecord(), nil
}

// FindInBatches streams every record ordered by primary key.
func (r *GormRecordRepository) FindInBatches(ctx context.Context, batchSize int, fn func(batch []domain.Record) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	var models []domain.RecordModel
	result := r.db.WithContext(ctx).Model(&domain.RecordModel{}).
		FindInBatches(&models, batchSize, func(tx *gorm.DB, batch int) error {
			return fn(toRecords(models))
		})
	return result.Error
}

// likeEscaper makes search terms match literally inside a LIKE pattern whose
// escape character is '!'.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search matches every query term, case-insensitively, against name, breed
// and outcome type. A record matching any term is returned.
func (r *GormRecordRepository) Search(ctx context.Context, query string, limit int) ([]domain.Record, error) {
	l := log.Ctx(ctx)

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []domain.Record{}, nil
	}

	clauses := make([]string, 0, len(terms)*len(domain.SearchFields))
	args := make([]interface{}, 0, cap(clauses))
	for _, term := range terms {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		for _, field := range domain.SearchFields {
			clauses = append(clauses, "LOWER("+field+") LIKE ? ESCAPE '!'")
			args = append(args, pattern)
		}
	}

	q := r.db.WithContext(ctx).Model(&domain.RecordModel{}).
		Where(strings.Join(clauses, " OR "), args...).
		Order("name ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var models []domain.RecordModel
	if err := q.Find(&models).Error; err != nil {
		l.Error().Err(err).Str(log.FieldQuery, query).Msg("failed to search records in db")
		return nil, err
	}

	return toRecords(models), nil
}

// OutcomeTypeCounts groups matching records by outcome type, largest group first.
func (r *GormRecordRepository) OutcomeTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.OutcomeTypeCount, error) {
	l := log.Ctx(ctx)

	var rows []struct {
		OutcomeType string
		Total       int64
		AvgAgeWeeks *float64
	}
	err := r.scoped(ctx, filter).
		Select("outcome_type, COUNT(*) AS total, AVG(age_upon_outcome_in_weeks) AS avg_age_weeks").
		Group("outcome_type").
		Order("total DESC").Order("outcome_type ASC").
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to aggregate outcome types")
		return nil, err
	}

	out := make([]domain.OutcomeTypeCount, len(rows))
	for i, row := range rows {
		out[i] = domain.OutcomeTypeCount{
			OutcomeType: row.OutcomeType,
			Count:       row.Total,
			AvgAgeWeeks: row.AvgAgeWeeks,
		}
	}
	return out, nil
}

// AnimalTypeCounts groups matching records by animal type, largest group first.
func (r *GormRecordRepository) AnimalTypeCounts(ctx context.Context, filter domain.Filter) ([]domain.AnimalTypeCount, error) {
	l := log.Ctx(ctx)

	var rows []struct {
		AnimalType   string
		Total        int64
		UniqueBreeds int64
	}
	err := r.scoped(ctx, filter).
		Select("animal_type, COUNT(*) AS total, COUNT(DISTINCT breed) AS unique_breeds").
		Group("animal_type").
		Order("total DESC").Order("animal_type ASC").
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to aggregate animal types")
		return nil, err
	}

	out := make([]domain.AnimalTypeCount, len(rows))
	for i, row := range rows {
		out[i] = domain.AnimalTypeCount{
			AnimalType:   row.AnimalType,
			Count:        row.Total,
			UniqueBreeds: row.UniqueBreeds,
		}
	}
	return out, nil
}

// BreedCounts returns the limit largest breed groups with their outcome types.
func (r *GormRecordRepository) BreedCounts(ctx context.Context, filter domain.Filter, limit int) ([]domain.BreedCount, error) {
	l := log.Ctx(ctx)

	var rows []struct {
		Breed       string
		OutcomeType string
		Total       int64
		AgeSum      *float64
		AgeCount    int64
	}
	err := r.scoped(ctx, filter).
		Select("breed, outcome_type, COUNT(*) AS total, SUM(age_upon_outcome_in_weeks) AS age_sum, COUNT(age_upon_outcome_in_weeks) AS age_count").
		Group("breed, outcome_type").
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to aggregate breeds")
		return nil, err
	}

	type acc struct {
		count    int64
		ageSum   float64
		ageCount int64
		outcomes []string
	}
	groups := make(map[string]*acc)
	for _, row := range rows {
		g, ok := groups[row.Breed]
		if !ok {
			g = &acc{}
			groups[row.Breed] = g
		}
		g.count += row.Total
		if row.AgeSum != nil {
			g.ageSum += *row.AgeSum
		}
		g.ageCount += row.AgeCount
		if row.OutcomeType != "" {
			g.outcomes = append(g.outcomes, row.OutcomeType)
		}
	}

	out := make([]domain.BreedCount, 0, len(groups))
	for breed, g := range groups {
		bc := domain.BreedCount{
			Breed:        breed,
			Count:        g.count,
			OutcomeTypes: g.outcomes,
		}
		if bc.OutcomeTypes == nil {
			bc.OutcomeTypes = []string{}
		}
		sort.Strings(bc.OutcomeTypes)
		if g.ageCount > 0 {
			avg := g.ageSum / float64(g.ageCount)
			bc.AvgAgeWeeks = &avg
		}
		out = append(out, bc)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Breed < out[j].Breed
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MonthlyCounts groups matching records by the year and month of their
// outcome datetime, oldest first. Records without a parseable datetime are skipped.
func (r *GormRecordRepository) MonthlyCounts(ctx context.Context, filter domain.Filter) ([]domain.MonthlyCount, error) {
	l := log.Ctx(ctx)

	var rows []struct {
		MonthKey    string
		OutcomeType string
		Total       int64
	}
	err := r.scoped(ctx, filter).
		Select("SUBSTR(datetime, 1, 7) AS month_key, outcome_type, COUNT(*) AS total").
		Where("datetime <> ''").
		Group("SUBSTR(datetime, 1, 7), outcome_type").
		Scan(&rows).Error
	if err != nil {
		l.Error().Err(err).Msg("failed to aggregate monthly outcomes")
		return nil, err
	}

	byMonth := make(map[string]*domain.MonthlyCount)
	for _, row := range rows {
		t, err := time.Parse("2006-01", row.MonthKey)
		if err != nil {
			continue
		}
		m, ok := byMonth[row.MonthKey]
		if !ok {
			m = &domain.MonthlyCount{Year: t.Year(), Month: int(t.Month()), OutcomeTypes: []string{}}
			byMonth[row.MonthKey] = m
		}
		m.Count += row.Total
		if row.OutcomeType != "" {
			m.OutcomeTypes = append(m.OutcomeTypes, row.OutcomeType)
		}
	}

	out := make([]domain.MonthlyCount, 0, len(byMonth))
	for _, m := range byMonth {
		sort.Strings(m.OutcomeTypes)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func (r *GormRecordRepository) first(ctx context.Context, id string) (*domain.RecordModel, error) {
	l := log.Ctx(ctx)

	var model domain.RecordModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRecordID, id).Msg("failed to get record by id")
		return nil, result.Error
	}
	return &model, nil
}

// scoped builds a query over the outcomes table restricted by filter.
func (r *GormRecordRepository) scoped(ctx context.Context, filter domain.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.RecordModel{})
	if len(filter.Breeds) > 0 {
		query = query.Where("breed IN ?", filter.Breeds)
	}
	if filter.Sex != "" {
		query = query.Where("sex_upon_outcome = ?", filter.Sex)
	}
	if filter.MinAgeWeeks > 0 {
		query = query.Where("age_upon_outcome_in_weeks >= ?", filter.MinAgeWeeks)
	}
	if filter.MaxAgeWeeks > 0 {
		query = query.Where("age_upon_outcome_in_weeks <= ?", filter.MaxAgeWeeks)
	}
	return query
}

func (r *GormRecordRepository) ordered(query *gorm.DB) *gorm.DB {
	return query.Order("created_at ASC").Order("id ASC")
}

func toRecords(models []domain.RecordModel) []domain.Record {
	out := make([]domain.Record, len(models))
	for i := range models {
		out[i] = models[i].ToRecord()
	}
	return out
}
