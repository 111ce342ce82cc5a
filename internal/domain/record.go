package domain

import (
	"fmt"
	"strconv"
)

// Field names of an Austin Animal Center outcome record.
const (
	FieldID                    = "id"
	FieldRecNum                = "rec_num"
	FieldAgeUponOutcome        = "age_upon_outcome"
	FieldAnimalID              = "animal_id"
	FieldAnimalType            = "animal_type"
	FieldBreed                 = "breed"
	FieldColor                 = "color"
	FieldDateOfBirth           = "date_of_birth"
	FieldDateTime              = "datetime"
	FieldMonthYear             = "monthyear"
	FieldName                  = "name"
	FieldOutcomeSubtype        = "outcome_subtype"
	FieldOutcomeType           = "outcome_type"
	FieldSexUponOutcome        = "sex_upon_outcome"
	FieldLocationLat           = "location_lat"
	FieldLocationLong          = "location_long"
	FieldAgeUponOutcomeInWeeks = "age_upon_outcome_in_weeks"
)

// SearchFields are the fields covered by full-text search.
var SearchFields = []string{FieldName, FieldBreed, FieldOutcomeType}

// Record is a schema-less outcome record: field name to value.
type Record map[string]interface{}

// ID returns the record identifier, or "" when unset.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns the field as a string. Non-string scalars are formatted;
// missing and null fields return "".
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// Float returns the field as a float64 when it holds a number or a numeric string.
func (r Record) Float(field string) (float64, bool) {
	switch t := r[field].(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
