package primitive

import "github.com/roach88/ergo/internal/ir"

// CoreVersion is the version of every built-in primitive.
const CoreVersion = "0.1.0"

func input(name string, t ir.ValueType, required bool) ir.InputSpec {
	return ir.InputSpec{Name: name, Type: t, Required: required, Cardinality: ir.Single}
}

func output(name string, t ir.ValueType) ir.OutputSpec {
	return ir.OutputSpec{Name: name, Type: t, Cardinality: ir.Single}
}

func param(name string, t ir.ParameterType, def ir.ParameterValue) ir.ParameterSpec {
	return ir.ParameterSpec{Name: name, Type: t, Default: def, Required: def == nil}
}

func optionalParam(name string, t ir.ParameterType) ir.ParameterSpec {
	return ir.ParameterSpec{Name: name, Type: t}
}

func sourceManifest(id string, out ir.OutputSpec, params ...ir.ParameterSpec) *ir.Manifest {
	return &ir.Manifest{
		ID:            id,
		Version:       CoreVersion,
		Kind:          ir.KindSource,
		Inputs:        []ir.InputSpec{},
		Outputs:       []ir.OutputSpec{out},
		Parameters:    params,
		Deterministic: true,
		Cadence:       ir.CadenceContinuous,
	}
}

func computeManifest(id string, inputs []ir.InputSpec, out ir.OutputSpec, params ...ir.ParameterSpec) *ir.Manifest {
	if params == nil {
		params = []ir.ParameterSpec{}
	}
	return &ir.Manifest{
		ID:            id,
		Version:       CoreVersion,
		Kind:          ir.KindCompute,
		Inputs:        inputs,
		Outputs:       []ir.OutputSpec{out},
		Parameters:    params,
		Deterministic: true,
		Cadence:       ir.CadenceContinuous,
	}
}

func triggerManifest(id string, inputs []ir.InputSpec, out string) *ir.Manifest {
	return &ir.Manifest{
		ID:            id,
		Version:       CoreVersion,
		Kind:          ir.KindTrigger,
		Inputs:        inputs,
		Outputs:       []ir.OutputSpec{output(out, ir.TypeEvent)},
		Parameters:    []ir.ParameterSpec{},
		Deterministic: true,
	}
}

// ActionManifest builds the manifest shape every action shares: one
// required event input, one outcome output, side effects, no retries.
func ActionManifest(id, version string, params ...ir.ParameterSpec) *ir.Manifest {
	if params == nil {
		params = []ir.ParameterSpec{}
	}
	return &ir.Manifest{
		ID:            id,
		Version:       version,
		Kind:          ir.KindAction,
		Inputs:        []ir.InputSpec{input("event", ir.TypeEvent, true)},
		Outputs:       []ir.OutputSpec{output("outcome", ir.TypeEvent)},
		Parameters:    params,
		Deterministic: true,
		SideEffects:   true,
	}
}
