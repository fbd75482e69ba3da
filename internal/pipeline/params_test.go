package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
)

func TestParseParameterValue(t *testing.T) {
	tests := []struct {
		raw  string
		want ir.ParameterValue
	}{
		{"true", ir.BoolValue(true)},
		{"false", ir.BoolValue(false)},
		{"3", ir.IntValue(3)},
		{"-2", ir.IntValue(-2)},
		{"2.5", ir.NumberValue(2.5)},
		{"XNYS", ir.StringParam("XNYS")},
		{"", ir.StringParam("")},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseParameterValue(tt.raw), tt.raw)
	}
}

func TestParseParameters(t *testing.T) {
	params, err := ParseParameters([]string{"price=7", "note=a=b"})
	require.NoError(t, err)
	assert.Equal(t, ir.Parameters{
		"price": ir.IntValue(7),
		"note":  ir.StringParam("a=b"),
	}, params)

	_, err = ParseParameters([]string{"price"})
	assert.Error(t, err)
	_, err = ParseParameters([]string{"=1"})
	assert.Error(t, err)
	_, err = ParseParameters([]string{"a=1", "a=2"})
	assert.Error(t, err)
}
