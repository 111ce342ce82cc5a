package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap stores a free-form object as a JSON text column. It works the same
// on PostgreSQL, MySQL and SQLite.
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface for reading from the database.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return m.scanBytes(v)
	case string:
		return m.scanBytes([]byte(v))
	default:
		return errors.New("JSONMap: unsupported scan type")
	}
}

func (m *JSONMap) scanBytes(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*m = nil
		return nil
	}
	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Value implements the driver.Valuer interface for writing to the database.
func (m JSONMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// GormDataType returns the GORM data type hint.
func (JSONMap) GormDataType() string {
	return "text"
}
