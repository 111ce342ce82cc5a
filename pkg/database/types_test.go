package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMap_Value(t *testing.T) {
	v, err := JSONMap{"microchip": "A1"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"microchip":"A1"}`, v)

	v, err = JSONMap{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestJSONMap_Scan(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  JSONMap
	}{
		{"bytes", []byte(`{"a":1}`), JSONMap{"a": float64(1)}},
		{"string", `{"b":"x"}`, JSONMap{"b": "x"}},
		{"nil", nil, nil},
		{"null", "null", nil},
		{"empty", []byte{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			require.NoError(t, m.Scan(tt.input))
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestJSONMap_ScanErrors(t *testing.T) {
	var m JSONMap
	assert.Error(t, m.Scan(42))
	assert.Error(t, m.Scan(`{"a":`))
}
