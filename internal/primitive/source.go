package primitive

import "github.com/roach88/ergo/internal/ir"

// NumberSource emits its value parameter, or the environment value stored
// under its key parameter when one is present.
type NumberSource struct{ manifest *ir.Manifest }

// NewNumberSource returns number_source.
func NewNumberSource() *NumberSource {
	return &NumberSource{manifest: sourceManifest("number_source",
		output("value", ir.TypeNumber),
		param("value", ir.ParamNumber, ir.NumberValue(0)),
		optionalParam("key", ir.ParamString),
	)}
}

func (s *NumberSource) Manifest() *ir.Manifest { return s.manifest }

func (s *NumberSource) Produce(env Env, params ir.Parameters) (ir.Values, error) {
	v, ok, err := lookupKeyed(env, params, ir.TypeNumber)
	if err != nil {
		return nil, err
	}
	if ok {
		return ir.Values{"value": v}, nil
	}
	n, err := NumberParam(params, "value")
	if err != nil {
		return nil, err
	}
	return ir.Values{"value": ir.Number(n)}, nil
}

// BooleanSource is the Bool counterpart of NumberSource.
type BooleanSource struct{ manifest *ir.Manifest }

// NewBooleanSource returns boolean_source.
func NewBooleanSource() *BooleanSource {
	return &BooleanSource{manifest: sourceManifest("boolean_source",
		output("value", ir.TypeBool),
		param("value", ir.ParamBool, ir.BoolValue(false)),
		optionalParam("key", ir.ParamString),
	)}
}

func (s *BooleanSource) Manifest() *ir.Manifest { return s.manifest }

func (s *BooleanSource) Produce(env Env, params ir.Parameters) (ir.Values, error) {
	v, ok, err := lookupKeyed(env, params, ir.TypeBool)
	if err != nil {
		return nil, err
	}
	if ok {
		return ir.Values{"value": v}, nil
	}
	b, err := BoolParam(params, "value")
	if err != nil {
		return nil, err
	}
	return ir.Values{"value": ir.Bool(b)}, nil
}

// lookupKeyed returns the environment value named by the key parameter.
func lookupKeyed(env Env, params ir.Parameters, t ir.ValueType) (ir.Value, bool, error) {
	key, err := StringParam(params, "key")
	if err != nil || key == "" || env == nil {
		return nil, false, err
	}
	v, ok := env.Lookup(key)
	if !ok {
		return nil, false, nil
	}
	if v.Type() != t {
		return nil, false, &CoercionError{Name: key, Expected: string(t), Got: string(v.Type())}
	}
	return v, true, nil
}
