package ir

// PrimitiveKind is the causal role of a primitive. The set is closed.
type PrimitiveKind string

const (
	KindSource  PrimitiveKind = "Source"
	KindCompute PrimitiveKind = "Compute"
	KindTrigger PrimitiveKind = "Trigger"
	KindAction  PrimitiveKind = "Action"
)

// PrimitiveKinds lists every primitive kind in wiring order.
var PrimitiveKinds = []PrimitiveKind{KindSource, KindCompute, KindTrigger, KindAction}

// Valid reports whether k is one of the four primitive kinds.
func (k PrimitiveKind) Valid() bool {
	switch k {
	case KindSource, KindCompute, KindTrigger, KindAction:
		return true
	}
	return false
}

// Boundary returns the boundary kind a cluster built from a single k node would have.
func (k PrimitiveKind) Boundary() BoundaryKind {
	switch k {
	case KindSource:
		return SourceLike
	case KindCompute:
		return ComputeLike
	case KindTrigger:
		return TriggerLike
	case KindAction:
		return ActionLike
	}
	return ""
}

// BoundaryKind classifies a cluster by how it may be wired from the outside.
type BoundaryKind string

const (
	SourceLike  BoundaryKind = "SourceLike"
	ComputeLike BoundaryKind = "ComputeLike"
	TriggerLike BoundaryKind = "TriggerLike"
	ActionLike  BoundaryKind = "ActionLike"
)

// Valid reports whether b is one of the four boundary kinds.
func (b BoundaryKind) Valid() bool {
	return b.Primitive().Valid()
}

// Primitive maps a boundary kind onto the primitive kind it wires like.
func (b BoundaryKind) Primitive() PrimitiveKind {
	switch b {
	case SourceLike:
		return KindSource
	case ComputeLike:
		return KindCompute
	case TriggerLike:
		return KindTrigger
	case ActionLike:
		return KindAction
	}
	return ""
}

// WiringAllowed reports whether an edge from a node of kind from may feed a
// node of kind to. The same table applies to cluster boundary kinds through
// BoundaryKind.Primitive.
//
//	Source  -> Compute
//	Compute -> Compute, Trigger
//	Trigger -> Trigger, Action
//
// Everything else is forbidden: Action is terminal and Source is origin only.
func WiringAllowed(from, to PrimitiveKind) bool {
	switch from {
	case KindSource:
		return to == KindCompute
	case KindCompute:
		return to == KindCompute || to == KindTrigger
	case KindTrigger:
		return to == KindTrigger || to == KindAction
	case KindAction:
		return false
	}
	return false
}

// ValueType is the type carried on a port.
type ValueType string

const (
	TypeNumber ValueType = "Number"
	TypeSeries ValueType = "Series"
	TypeBool   ValueType = "Bool"
	TypeEvent  ValueType = "Event"
	TypeString ValueType = "String"
)

// Valid reports whether t is a known value type.
func (t ValueType) Valid() bool {
	switch t {
	case TypeNumber, TypeSeries, TypeBool, TypeEvent, TypeString:
		return true
	}
	return false
}

// Cardinality is the number of values a port carries per pass.
type Cardinality string

const (
	Single   Cardinality = "Single"
	Multiple Cardinality = "Multiple"
)

// ParameterType is the declared type of a parameter.
type ParameterType string

const (
	ParamInt    ParameterType = "Int"
	ParamNumber ParameterType = "Number"
	ParamBool   ParameterType = "Bool"
	ParamString ParameterType = "String"
	ParamEnum   ParameterType = "Enum"
)

// Valid reports whether t is a known parameter type.
func (t ParameterType) Valid() bool {
	switch t {
	case ParamInt, ParamNumber, ParamBool, ParamString, ParamEnum:
		return true
	}
	return false
}
