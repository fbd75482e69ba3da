// Package primitive defines the four primitive roles and the core set of
// implementations every catalog starts from.
//
// Primitives receive declared inputs and resolved parameters only. None of
// the interfaces expose state that survives a call; anything a primitive
// computes along the way lives in local variables.
package primitive

import (
	"context"
	"fmt"

	"github.com/roach88/ergo/internal/ir"
)

// Primitive is implemented by every primitive role.
type Primitive interface {
	Manifest() *ir.Manifest
}

// Env is the read side of an execution context. Sources consult it for
// adapter-supplied values.
type Env interface {
	Lookup(key string) (ir.Value, bool)
}

// Source materializes values from the environment and its parameters.
type Source interface {
	Primitive
	Produce(env Env, params ir.Parameters) (ir.Values, error)
}

// Compute is a pure function of its inputs and parameters.
type Compute interface {
	Primitive
	Compute(inputs ir.Values, params ir.Parameters) (ir.Values, error)
}

// Trigger decides whether an event is emitted for this pass.
type Trigger interface {
	Primitive
	Evaluate(inputs ir.Values, params ir.Parameters) (ir.Values, error)
}

// Action performs an external effect and reports an outcome.
// A returned error aborts every action after it in the same pass.
type Action interface {
	Primitive
	Execute(ctx context.Context, inputs ir.Values, params ir.Parameters) (ir.Values, error)
}

// MissingError reports an input or parameter that was not supplied.
type MissingError struct {
	Name      string
	Parameter bool
}

func (e *MissingError) Error() string {
	if e.Parameter {
		return fmt.Sprintf("missing parameter %q", e.Name)
	}
	return fmt.Sprintf("missing input %q", e.Name)
}

// CoercionError reports a value whose type does not match what the
// primitive reads it as.
type CoercionError struct {
	Name     string
	Expected string
	Got      string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Name, e.Expected, e.Got)
}

// Number reads a Number input.
func Number(inputs ir.Values, name string) (float64, error) {
	v, ok := inputs[name]
	if !ok {
		return 0, &MissingError{Name: name}
	}
	n, ok := v.(ir.Number)
	if !ok {
		return 0, &CoercionError{Name: name, Expected: string(ir.TypeNumber), Got: string(v.Type())}
	}
	return float64(n), nil
}

// Bool reads a Bool input.
func Bool(inputs ir.Values, name string) (bool, error) {
	v, ok := inputs[name]
	if !ok {
		return false, &MissingError{Name: name}
	}
	b, ok := v.(ir.Bool)
	if !ok {
		return false, &CoercionError{Name: name, Expected: string(ir.TypeBool), Got: string(v.Type())}
	}
	return bool(b), nil
}

// Event reads an Event input of either flavour.
func Event(inputs ir.Values, name string) (ir.Value, error) {
	v, ok := inputs[name]
	if !ok {
		return nil, &MissingError{Name: name}
	}
	if v.Type() != ir.TypeEvent {
		return nil, &CoercionError{Name: name, Expected: string(ir.TypeEvent), Got: string(v.Type())}
	}
	return v, nil
}

// NumberParam reads a Number parameter. Int parameters widen.
func NumberParam(params ir.Parameters, name string) (float64, error) {
	p, ok := params[name]
	if !ok {
		return 0, &MissingError{Name: name, Parameter: true}
	}
	f, ok := ir.AsNumber(p)
	if !ok {
		return 0, &CoercionError{Name: name, Expected: string(ir.ParamNumber), Got: string(p.Type())}
	}
	return f, nil
}

// BoolParam reads a Bool parameter.
func BoolParam(params ir.Parameters, name string) (bool, error) {
	p, ok := params[name]
	if !ok {
		return false, &MissingError{Name: name, Parameter: true}
	}
	b, ok := p.(ir.BoolValue)
	if !ok {
		return false, &CoercionError{Name: name, Expected: string(ir.ParamBool), Got: string(p.Type())}
	}
	return bool(b), nil
}

// StringParam reads a String parameter, returning "" when absent.
func StringParam(params ir.Parameters, name string) (string, error) {
	p, ok := params[name]
	if !ok {
		return "", nil
	}
	s, ok := p.(ir.StringParam)
	if !ok {
		return "", &CoercionError{Name: name, Expected: string(ir.ParamString), Got: string(p.Type())}
	}
	return string(s), nil
}
