package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/primitive"
)

func TestCoreManifestsPassRules(t *testing.T) {
	for _, m := range primitive.Core().Manifests() {
		assert.Empty(t, CheckManifest(m), m.ID)
	}

	c, err := New(primitive.Core().Manifests()...)
	require.NoError(t, err)
	assert.Equal(t, 20, c.Len())

	m, ok := c.Manifest(ir.ImplementationInstance{ImplID: "gt", Version: "0.1.0"})
	require.True(t, ok)
	assert.Equal(t, ir.KindCompute, m.Kind)
}

func TestCheckManifestRules(t *testing.T) {
	event := ir.InputSpec{Name: "event", Type: ir.TypeEvent, Required: true, Cardinality: ir.Single}
	outcome := ir.OutputSpec{Name: "outcome", Type: ir.TypeEvent, Cardinality: ir.Single}
	num := ir.OutputSpec{Name: "value", Type: ir.TypeNumber, Cardinality: ir.Single}

	tests := []struct {
		name string
		m    ir.Manifest
		rule string
	}{
		{
			name: "source with input",
			m:    ir.Manifest{ID: "s", Version: "1", Kind: ir.KindSource, Deterministic: true, Inputs: []ir.InputSpec{event}, Outputs: []ir.OutputSpec{num}},
			rule: "inputs",
		},
		{
			name: "compute without inputs",
			m:    ir.Manifest{ID: "c", Version: "1", Kind: ir.KindCompute, Deterministic: true, Outputs: []ir.OutputSpec{num}},
			rule: "inputs",
		},
		{
			name: "compute with side effects",
			m:    ir.Manifest{ID: "c", Version: "1", Kind: ir.KindCompute, Deterministic: true, SideEffects: true, Inputs: []ir.InputSpec{event}, Outputs: []ir.OutputSpec{num}},
			rule: "side_effects",
		},
		{
			name: "trigger with number output",
			m:    ir.Manifest{ID: "t", Version: "1", Kind: ir.KindTrigger, Deterministic: true, Outputs: []ir.OutputSpec{num}},
			rule: "outputs",
		},
		{
			name: "retryable action",
			m:    ir.Manifest{ID: "a", Version: "1", Kind: ir.KindAction, Deterministic: true, SideEffects: true, Retryable: true, Inputs: []ir.InputSpec{event}, Outputs: []ir.OutputSpec{outcome}},
			rule: "retryable",
		},
		{
			name: "action without outcome",
			m:    ir.Manifest{ID: "a", Version: "1", Kind: ir.KindAction, Deterministic: true, SideEffects: true, Inputs: []ir.InputSpec{event}, Outputs: []ir.OutputSpec{num}},
			rule: "outputs",
		},
		{
			name: "stateful source",
			m:    ir.Manifest{ID: "s", Version: "1", Kind: ir.KindSource, Deterministic: true, Stateful: true, Outputs: []ir.OutputSpec{num}},
			rule: "stateless",
		},
		{
			name: "bad default",
			m: ir.Manifest{ID: "s", Version: "1", Kind: ir.KindSource, Deterministic: true, Outputs: []ir.OutputSpec{num},
				Parameters: []ir.ParameterSpec{{Name: "v", Type: ir.ParamNumber, Default: ir.BoolValue(true)}}},
			rule: "parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckManifest(&tt.m)
			require.NotEmpty(t, errs)
			var rules []string
			for _, err := range errs {
				rules = append(rules, err.(*RuleError).Rule)
			}
			assert.Contains(t, rules, tt.rule)
		})
	}
}

func TestIdentityTracksManifestContent(t *testing.T) {
	a := MustNew(primitive.NewGt().Manifest(), primitive.NewAdd().Manifest())
	b := MustNew(primitive.NewAdd().Manifest(), primitive.NewGt().Manifest())
	assert.Equal(t, a.Identity(), b.Identity())

	changed := *primitive.NewGt().Manifest()
	changed.Outputs = []ir.OutputSpec{{Name: "result", Type: ir.TypeNumber, Cardinality: ir.Single}}
	c := MustNew(&changed, primitive.NewAdd().Manifest())
	assert.NotEqual(t, a.Identity(), c.Identity())
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(primitive.NewGt().Manifest(), primitive.NewGt().Manifest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate manifest")
}
