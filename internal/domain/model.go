package domain

import (
	"time"

	"github.com/rescuedash/shelter-dashboard/pkg/database"
)

// RecordModel is the GORM model for the outcomes table. Known outcome fields
// get their own columns; anything else lands in Extra.
type RecordModel struct {
	ID                    string           `gorm:"type:varchar(36);primaryKey"`
	RecNum                *int64           `gorm:"column:rec_num"`
	AgeUponOutcome        string           `gorm:"type:varchar(50)"`
	AnimalID              string           `gorm:"type:varchar(20);index"`
	AnimalType            string           `gorm:"type:varchar(50);index"`
	Breed                 string           `gorm:"type:varchar(200);index:idx_outcomes_filter,priority:1"`
	Color                 string           `gorm:"type:varchar(100)"`
	DateOfBirth           string           `gorm:"type:varchar(30);index"`
	DateTime              string           `gorm:"column:datetime;type:varchar(30)"`
	MonthYear             string           `gorm:"column:monthyear;type:varchar(30)"`
	Name                  string           `gorm:"type:varchar(100)"`
	OutcomeSubtype        string           `gorm:"type:varchar(100)"`
	OutcomeType           string           `gorm:"type:varchar(100);index"`
	SexUponOutcome        string           `gorm:"type:varchar(50);index:idx_outcomes_filter,priority:2"`
	LocationLat           *float64         `gorm:"column:location_lat"`
	LocationLong          *float64         `gorm:"column:location_long"`
	AgeUponOutcomeInWeeks *float64         `gorm:"column:age_upon_outcome_in_weeks;index:idx_outcomes_filter,priority:3"`
	Extra                 database.JSONMap `gorm:"type:text"`
	CreatedAt             time.Time        `gorm:"autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for RecordModel.
func (RecordModel) TableName() string {
	return "outcomes"
}

// ToRecord converts the model to a schema-less record. Null columns are
// reported as null so every known field is always present.
func (m *RecordModel) ToRecord() Record {
	rec := make(Record, 17+len(m.Extra))
	for k, v := range m.Extra {
		rec[k] = v
	}

	rec[FieldID] = m.ID
	rec[FieldRecNum] = nullableInt(m.RecNum)
	rec[FieldAgeUponOutcome] = m.AgeUponOutcome
	rec[FieldAnimalID] = m.AnimalID
	rec[FieldAnimalType] = m.AnimalType
	rec[FieldBreed] = m.Breed
	rec[FieldColor] = m.Color
	rec[FieldDateOfBirth] = m.DateOfBirth
	rec[FieldDateTime] = m.DateTime
	rec[FieldMonthYear] = m.MonthYear
	rec[FieldName] = m.Name
	rec[FieldOutcomeSubtype] = m.OutcomeSubtype
	rec[FieldOutcomeType] = m.OutcomeType
	rec[FieldSexUponOutcome] = m.SexUponOutcome
	rec[FieldLocationLat] = nullableFloat(m.LocationLat)
	rec[FieldLocationLong] = nullableFloat(m.LocationLong)
	rec[FieldAgeUponOutcomeInWeeks] = nullableFloat(m.AgeUponOutcomeInWeeks)

	return rec
}

// RecordToModel converts a record to a model. The record's id, if any, is kept.
func RecordToModel(rec Record) *RecordModel {
	m := &RecordModel{ID: rec.ID()}
	m.Apply(rec)
	return m
}

// Apply merges fields into the model, overwriting only the fields present.
// The id field is never changed.
func (m *RecordModel) Apply(fields Record) {
	for k, v := range fields {
		switch k {
		case FieldID:
		case FieldRecNum:
			m.RecNum = intPtr(fields, k)
		case FieldAgeUponOutcome:
			m.AgeUponOutcome = fields.String(k)
		case FieldAnimalID:
			m.AnimalID = fields.String(k)
		case FieldAnimalType:
			m.AnimalType = fields.String(k)
		case FieldBreed:
			m.Breed = fields.String(k)
		case FieldColor:
			m.Color = fields.String(k)
		case FieldDateOfBirth:
			m.DateOfBirth = fields.String(k)
		case FieldDateTime:
			m.DateTime = fields.String(k)
		case FieldMonthYear:
			m.MonthYear = fields.String(k)
		case FieldName:
			m.Name = fields.String(k)
		case FieldOutcomeSubtype:
			m.OutcomeSubtype = fields.String(k)
		case FieldOutcomeType:
			m.OutcomeType = fields.String(k)
		case FieldSexUponOutcome:
			m.SexUponOutcome = fields.String(k)
		case FieldLocationLat:
			m.LocationLat = floatPtr(fields, k)
		case FieldLocationLong:
			m.LocationLong = floatPtr(fields, k)
		case FieldAgeUponOutcomeInWeeks:
			m.AgeUponOutcomeInWeeks = floatPtr(fields, k)
		default:
			if m.Extra == nil {
				m.Extra = database.JSONMap{}
			}
			if v == nil {
				delete(m.Extra, k)
				continue
			}
			m.Extra[k] = v
		}
	}
}

func floatPtr(r Record, field string) *float64 {
	f, ok := r.Float(field)
	if !ok {
		return nil
	}
	return &f
}

func intPtr(r Record, field string) *int64 {
	f, ok := r.Float(field)
	if !ok {
		return nil
	}
	i := int64(f)
	return &i
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullableInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}
