package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// ParameterValue is a sealed tagged union of literal parameter values.
// Only IntValue, NumberValue, BoolValue, StringParam and EnumValue implement it.
type ParameterValue interface {
	Type() ParameterType
	paramValue()
}

// IntValue is an Int parameter.
type IntValue int64

// NumberValue is a Number parameter.
type NumberValue float64

// BoolValue is a Bool parameter.
type BoolValue bool

// StringParam is a String parameter.
type StringParam string

// EnumValue is an Enum parameter. The variant name is carried as a string.
type EnumValue string

func (IntValue) Type() ParameterType    { return ParamInt }
func (NumberValue) Type() ParameterType { return ParamNumber }
func (BoolValue) Type() ParameterType   { return ParamBool }
func (StringParam) Type() ParameterType { return ParamString }
func (EnumValue) Type() ParameterType   { return ParamEnum }

func (IntValue) paramValue()    {}
func (NumberValue) paramValue() {}
func (BoolValue) paramValue()   {}
func (StringParam) paramValue() {}
func (EnumValue) paramValue()   {}

// AsNumber widens Int and Number parameters to float64.
func AsNumber(v ParameterValue) (float64, bool) {
	switch p := v.(type) {
	case NumberValue:
		return float64(p), true
	case IntValue:
		return float64(p), true
	}
	return 0, false
}

// Assignable reports whether v may fill a parameter declared as t.
// Int widens to Number; every other type must match exactly.
func Assignable(v ParameterValue, t ParameterType) bool {
	if v.Type() == t {
		return true
	}
	return v.Type() == ParamInt && t == ParamNumber
}

// FormatNumber renders a float in the shortest form that round-trips.
// It is the only way numbers enter canonical JSON.
func FormatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// taggedParam is the wire form {type, value}.
type taggedParam struct {
	Type  ParameterType   `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalParameterValue encodes v as {"type": ..., "value": ...}.
func MarshalParameterValue(v ParameterValue) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("nil parameter value")
	}
	var (
		raw []byte
		err error
	)
	switch p := v.(type) {
	case IntValue:
		raw, err = json.Marshal(int64(p))
	case NumberValue:
		raw, err = json.Marshal(float64(p))
	case BoolValue:
		raw, err = json.Marshal(bool(p))
	case StringParam:
		raw, err = json.Marshal(string(p))
	case EnumValue:
		raw, err = json.Marshal(string(p))
	default:
		return nil, fmt.Errorf("unknown parameter value type: %T", v)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(taggedParam{Type: v.Type(), Value: raw})
}

// UnmarshalParameterValue decodes the {"type": ..., "value": ...} wire form.
func UnmarshalParameterValue(data []byte) (ParameterValue, error) {
	var tp taggedParam
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tp); err != nil {
		return nil, fmt.Errorf("parameter value: %w", err)
	}
	if len(tp.Value) == 0 {
		return nil, fmt.Errorf("parameter value: missing value for type %q", tp.Type)
	}
	switch tp.Type {
	case ParamInt:
		var n json.Number
		if err := json.Unmarshal(tp.Value, &n); err != nil {
			return nil, fmt.Errorf("Int parameter: %w", err)
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("Int parameter: %q is not an integer", n)
		}
		return IntValue(i), nil
	case ParamNumber:
		var f float64
		if err := json.Unmarshal(tp.Value, &f); err != nil {
			return nil, fmt.Errorf("Number parameter: %w", err)
		}
		return NumberValue(f), nil
	case ParamBool:
		var b bool
		if err := json.Unmarshal(tp.Value, &b); err != nil {
			return nil, fmt.Errorf("Bool parameter: %w", err)
		}
		return BoolValue(b), nil
	case ParamString:
		var s string
		if err := json.Unmarshal(tp.Value, &s); err != nil {
			return nil, fmt.Errorf("String parameter: %w", err)
		}
		return StringParam(s), nil
	case ParamEnum:
		var s string
		if err := json.Unmarshal(tp.Value, &s); err != nil {
			return nil, fmt.Errorf("Enum parameter: %w", err)
		}
		return EnumValue(s), nil
	default:
		return nil, fmt.Errorf("unknown parameter type %q", tp.Type)
	}
}

// CanonicalParameter converts v to its canonical IR form for hashing.
func CanonicalParameter(v ParameterValue) IRValue {
	var val IRValue
	switch p := v.(type) {
	case IntValue:
		val = IRInt(p)
	case NumberValue:
		val = IRString(FormatNumber(float64(p)))
	case BoolValue:
		val = IRBool(p)
	case StringParam:
		val = IRString(p)
	case EnumValue:
		val = IRString(p)
	default:
		return IRNull{}
	}
	return IRObject{"type": IRString(v.Type()), "value": val}
}

// Parameters maps parameter names to resolved values.
type Parameters map[string]ParameterValue

// SortedNames returns parameter names in lexical order.
func (p Parameters) SortedNames() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy. Parameter values are immutable.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Canonical returns the canonical IR object for hashing.
func (p Parameters) Canonical() IRObject {
	obj := make(IRObject, len(p))
	for k, v := range p {
		obj[k] = CanonicalParameter(v)
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (p Parameters) MarshalJSON() ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(p))
	for k, v := range p {
		b, err := MarshalParameterValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		raw[k] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = make(Parameters, len(raw))
	for k, v := range raw {
		val, err := UnmarshalParameterValue(v)
		if err != nil {
			return fmt.Errorf("parameter %q: %w", k, err)
		}
		(*p)[k] = val
	}
	return nil
}
