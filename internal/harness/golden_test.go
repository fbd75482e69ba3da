package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"hello_world", "hello_world_gated", "compute_into_action", "missing_cluster"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			result, err := RunWithGolden(t, New(), s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestMarshalSnapshot_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/strategy_low_price.yaml")
	require.NoError(t, err)

	first, err := New().Run(context.Background(), s)
	require.NoError(t, err)
	second, err := New().Run(context.Background(), s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, byte('\n'), a[len(a)-1])
}

func TestNewSnapshot_FailedRun(t *testing.T) {
	result := NewResult("rejected")
	result.Codes = append(result.Codes, "InvalidWiring")

	data, err := MarshalSnapshot(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "rejected", decoded["scenario"])
	assert.Equal(t, []any{"InvalidWiring"}, decoded["codes"])
	assert.Equal(t, []any{}, decoded["trace"])
	assert.NotContains(t, decoded, "outputs")
	assert.NotContains(t, decoded, "run_id")
}
