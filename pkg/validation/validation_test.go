package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `json:"name" validate:"required"`
	Cost int64  `json:"credits_cost" validate:"gte=0"`
	Kind string `json:"type" validate:"omitempty,oneof=movie series"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Cost: -1, Kind: "podcast"})
	require.Error(t, err)

	var vErr *Errors
	require.True(t, errors.As(err, &vErr))

	fields := map[string]string{}
	for _, f := range vErr.Fields {
		fields[f.Field] = f.Code
	}
	assert.Equal(t, map[string]string{"name": "required", "credits_cost": "gte", "type": "oneof"}, fields)
}

func TestStructPasses(t *testing.T) {
	assert.NoError(t, Struct(sample{Name: "News", Cost: 0}))
}
