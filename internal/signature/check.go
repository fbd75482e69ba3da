package signature

import (
	"fmt"

	"github.com/roach88/ergo/internal/ir"
)

// Violation is one way a declared signature disagrees with the inferred one.
type Violation struct {
	Code    ViolationCode
	Port    string
	Message string
}

// ViolationCode categorizes declared-signature violations.
type ViolationCode string

const (
	ViolationKind        ViolationCode = "KIND_MISMATCH"
	ViolationUnknownPort ViolationCode = "UNKNOWN_PORT"
	ViolationPortType    ViolationCode = "PORT_TYPE_MISMATCH"
	ViolationCardinality ViolationCode = "CARDINALITY_MISMATCH"
	ViolationWireability ViolationCode = "WIREABILITY_EXCEEDS_INFERRED"
	ViolationSideEffects ViolationCode = "SIDE_EFFECTS_MISMATCH"
	ViolationOrigin      ViolationCode = "ORIGIN_MISMATCH"
)

func (v Violation) Error() string {
	if v.Port != "" {
		return fmt.Sprintf("%s: port %q: %s", v.Code, v.Port, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// CheckDeclared compares a declared signature against the inferred one.
// A declaration may hide ports but never invent or upgrade them, and it
// must state the kind and both flags exactly.
func CheckDeclared(declared, inferred ir.Signature) []Violation {
	var out []Violation

	if declared.Kind != inferred.Kind {
		out = append(out, Violation{
			Code:    ViolationKind,
			Message: fmt.Sprintf("declared %s, inferred %s", declared.Kind, inferred.Kind),
		})
	}
	if declared.HasSideEffects != inferred.HasSideEffects {
		out = append(out, Violation{
			Code:    ViolationSideEffects,
			Message: fmt.Sprintf("declared has_side_effects=%t, inferred %t", declared.HasSideEffects, inferred.HasSideEffects),
		})
	}
	if declared.IsOrigin != inferred.IsOrigin {
		out = append(out, Violation{
			Code:    ViolationOrigin,
			Message: fmt.Sprintf("declared is_origin=%t, inferred %t", declared.IsOrigin, inferred.IsOrigin),
		})
	}

	out = append(out, comparePorts("input", declared.Inputs, inferred.Input)...)
	out = append(out, comparePorts("output", declared.Outputs, inferred.Output)...)
	return out
}

func comparePorts(side string, declared []ir.PortSpec, lookup func(string) (ir.PortSpec, bool)) []Violation {
	var out []Violation
	for _, d := range declared {
		inf, ok := lookup(d.Name)
		if !ok {
			out = append(out, Violation{Code: ViolationUnknownPort, Port: d.Name, Message: "no such inferred " + side})
			continue
		}
		if d.Type != inf.Type {
			out = append(out, Violation{
				Code: ViolationPortType, Port: d.Name,
				Message: fmt.Sprintf("declared %s, inferred %s", d.Type, inf.Type),
			})
		}
		if d.Cardinality != inf.Cardinality {
			out = append(out, Violation{
				Code: ViolationCardinality, Port: d.Name,
				Message: fmt.Sprintf("declared %s, inferred %s", d.Cardinality, inf.Cardinality),
			})
		}
		if d.Wireable && !inf.Wireable {
			out = append(out, Violation{
				Code: ViolationWireability, Port: d.Name,
				Message: "declared wireable but inferred " + side + " is not",
			})
		}
	}
	return out
}
