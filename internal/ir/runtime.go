package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// TriggerEvent is the decision a trigger makes in one pass.
type TriggerEvent string

const (
	Emitted    TriggerEvent = "Emitted"
	NotEmitted TriggerEvent = "NotEmitted"
)

// ActionOutcome is the result an action reports. Skipped is produced by the
// engine, never by an action, when the action's triggers did not all emit.
type ActionOutcome string

const (
	OutcomeAttempted ActionOutcome = "Attempted"
	OutcomeFilled    ActionOutcome = "Filled"
	OutcomeRejected  ActionOutcome = "Rejected"
	OutcomeCancelled ActionOutcome = "Cancelled"
	OutcomeFailed    ActionOutcome = "Failed"
	OutcomeSkipped   ActionOutcome = "Skipped"
)

// Valid reports whether o is a known outcome.
func (o ActionOutcome) Valid() bool {
	switch o {
	case OutcomeAttempted, OutcomeFilled, OutcomeRejected, OutcomeCancelled, OutcomeFailed, OutcomeSkipped:
		return true
	}
	return false
}

// Value is a runtime value flowing along an edge. The set is closed.
type Value interface {
	Type() ValueType
	runtimeValue()
}

// Number is a Number runtime value.
type Number float64

// Series is a Series runtime value.
type Series []float64

// Bool is a Bool runtime value.
type Bool bool

// String is a String runtime value.
type String string

// TriggerValue is an Event carrying a trigger decision.
type TriggerValue TriggerEvent

// OutcomeValue is an Event carrying an action outcome.
type OutcomeValue ActionOutcome

func (Number) Type() ValueType       { return TypeNumber }
func (Series) Type() ValueType       { return TypeSeries }
func (Bool) Type() ValueType         { return TypeBool }
func (String) Type() ValueType       { return TypeString }
func (TriggerValue) Type() ValueType { return TypeEvent }
func (OutcomeValue) Type() ValueType { return TypeEvent }

func (Number) runtimeValue()       {}
func (Series) runtimeValue()       {}
func (Bool) runtimeValue()         {}
func (String) runtimeValue()       {}
func (TriggerValue) runtimeValue() {}
func (OutcomeValue) runtimeValue() {}

type valueWire struct {
	Type    ValueType       `json:"type"`
	Value   json.RawMessage `json:"value,omitempty"`
	Trigger TriggerEvent    `json:"trigger,omitempty"`
	Outcome ActionOutcome   `json:"outcome,omitempty"`
}

// IsFinite reports whether every number in v is finite. Values that carry
// no number are finite.
func IsFinite(v Value) bool {
	switch val := v.(type) {
	case Number:
		return !math.IsNaN(float64(val)) && !math.IsInf(float64(val), 0)
	case Series:
		for _, f := range val {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// MarshalValue encodes a runtime value. Scalars use {type, value};
// events use {type: "Event", trigger} or {type: "Event", outcome}.
func MarshalValue(v Value) ([]byte, error) {
	w := valueWire{}
	var (
		raw []byte
		err error
	)
	switch val := v.(type) {
	case Number:
		raw, err = json.Marshal(float64(val))
	case Series:
		s := []float64(val)
		if s == nil {
			s = []float64{}
		}
		raw, err = json.Marshal(s)
	case Bool:
		raw, err = json.Marshal(bool(val))
	case String:
		raw, err = json.Marshal(string(val))
	case TriggerValue:
		w.Trigger = TriggerEvent(val)
	case OutcomeValue:
		w.Outcome = ActionOutcome(val)
	default:
		return nil, fmt.Errorf("unknown runtime value type: %T", v)
	}
	if err != nil {
		return nil, err
	}
	w.Type = v.Type()
	w.Value = raw
	return json.Marshal(w)
}

// UnmarshalValue decodes the wire form written by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var w valueWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case TypeNumber:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return nil, fmt.Errorf("Number value: %w", err)
		}
		return Number(f), nil
	case TypeSeries:
		var s []float64
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("Series value: %w", err)
		}
		return Series(s), nil
	case TypeBool:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return nil, fmt.Errorf("Bool value: %w", err)
		}
		return Bool(b), nil
	case TypeString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return nil, fmt.Errorf("String value: %w", err)
		}
		return String(s), nil
	case TypeEvent:
		switch {
		case w.Trigger != "":
			return TriggerValue(w.Trigger), nil
		case w.Outcome != "":
			return OutcomeValue(w.Outcome), nil
		}
		return nil, fmt.Errorf("Event value needs trigger or outcome")
	}
	return nil, fmt.Errorf("unknown value type %q", w.Type)
}

// CanonicalValue returns the IR form of v for hashing.
func CanonicalValue(v Value) IRValue {
	switch val := v.(type) {
	case Number:
		return IRObject{"type": IRString(TypeNumber), "value": IRString(FormatNumber(float64(val)))}
	case Series:
		arr := make(IRArray, len(val))
		for i, f := range val {
			arr[i] = IRString(FormatNumber(f))
		}
		return IRObject{"type": IRString(TypeSeries), "value": arr}
	case Bool:
		return IRObject{"type": IRString(TypeBool), "value": IRBool(val)}
	case String:
		return IRObject{"type": IRString(TypeString), "value": IRString(val)}
	case TriggerValue:
		return IRObject{"type": IRString(TypeEvent), "trigger": IRString(val)}
	case OutcomeValue:
		return IRObject{"type": IRString(TypeEvent), "outcome": IRString(val)}
	}
	return IRNull{}
}

// Values maps port or output names to runtime values.
type Values map[string]Value

// SortedNames returns the keys of v in lexical order.
func (v Values) SortedNames() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(v))
	for k, val := range v {
		b, err := MarshalValue(val)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", k, err)
		}
		raw[k] = b
	}
	return json.Marshal(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = make(Values, len(raw))
	for k, r := range raw {
		val, err := UnmarshalValue(r)
		if err != nil {
			return fmt.Errorf("value %q: %w", k, err)
		}
		(*v)[k] = val
	}
	return nil
}
