// Package signature derives, checks and hashes cluster boundary contracts.
//
// Inference is a pure function of an expanded graph and a catalog snapshot.
// The catalog must stay version-consistent for the duration of a call;
// that is a precondition, not something Infer checks.
package signature

import (
	"errors"
	"fmt"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/ir"
)

// InferenceError reports a graph that cannot be resolved against the catalog.
type InferenceError struct {
	Code    InferenceErrorCode
	Message string
	NodeID  string
}

// InferenceErrorCode categorizes inference errors.
type InferenceErrorCode string

const (
	ErrCodeMissingPrimitive InferenceErrorCode = "MISSING_PRIMITIVE"
	ErrCodeMissingNode      InferenceErrorCode = "MISSING_NODE"
	ErrCodeMissingOutput    InferenceErrorCode = "MISSING_OUTPUT"
)

func (e *InferenceError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInferenceError returns true if err is or wraps an InferenceError.
func IsInferenceError(err error) bool {
	var ie *InferenceError
	return errors.As(err, &ie)
}

// Infer derives the signature of an expanded cluster.
//
// Output ports take their type and cardinality from the manifest of the
// node they map to and are wireable unless that node is an Action. Input
// ports take their type from the declared placeholder and are never
// wireable.
func Infer(g *ir.ExpandedGraph, cat catalog.Catalog) (ir.Signature, error) {
	kinds := make(map[string]ir.PrimitiveKind, len(g.Nodes))
	sig := ir.Signature{Inputs: []ir.PortSpec{}, Outputs: []ir.PortSpec{}}

	for _, id := range g.SortedNodeIDs() {
		impl := g.Nodes[id].Implementation
		m, ok := cat.Manifest(impl)
		if !ok {
			return ir.Signature{}, &InferenceError{
				Code:    ErrCodeMissingPrimitive,
				Message: fmt.Sprintf("catalog has no %s", impl),
				NodeID:  id,
			}
		}
		kinds[id] = m.Kind
		if m.Kind == ir.KindAction {
			sig.HasSideEffects = true
		}
	}

	for _, in := range g.BoundaryInputs {
		sig.Inputs = append(sig.Inputs, ir.PortSpec{
			Name:        in.Name,
			Type:        in.MapsTo.Type,
			Cardinality: ir.Single,
			Wireable:    false,
		})
	}

	for _, out := range g.BoundaryOutputs {
		n, ok := g.Nodes[out.MapsTo.NodeID]
		if !ok {
			return ir.Signature{}, &InferenceError{
				Code:    ErrCodeMissingNode,
				Message: fmt.Sprintf("output %q maps to unknown node", out.Name),
				NodeID:  out.MapsTo.NodeID,
			}
		}
		m, _ := cat.Manifest(n.Implementation)
		spec, ok := m.Output(out.MapsTo.PortName)
		if !ok {
			return ir.Signature{}, &InferenceError{
				Code:    ErrCodeMissingOutput,
				Message: fmt.Sprintf("output %q maps to %s, which %s does not declare", out.Name, out.MapsTo, n.Implementation),
				NodeID:  out.MapsTo.NodeID,
			}
		}
		sig.Outputs = append(sig.Outputs, ir.PortSpec{
			Name:        out.Name,
			Type:        spec.Type,
			Cardinality: spec.Cardinality,
			Wireable:    kinds[out.MapsTo.NodeID] != ir.KindAction,
		})
	}

	sig.IsOrigin = len(sig.Inputs) == 0 && rootsAreSources(g, kinds)
	sig.Kind = boundaryKind(sig)
	return sig, nil
}

// rootsAreSources reports whether every node without an incoming
// node-to-node edge is a Source.
func rootsAreSources(g *ir.ExpandedGraph, kinds map[string]ir.PrimitiveKind) bool {
	fed := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		if e.From.Type == ir.EndpointNodePort && e.To.Type == ir.EndpointNodePort {
			fed[e.To.NodeID] = true
		}
	}
	for id, kind := range kinds {
		if !fed[id] && kind != ir.KindSource {
			return false
		}
	}
	return true
}

// boundaryKind classifies a signature. The order of the checks matters:
// ActionLike, then SourceLike, then TriggerLike, then ComputeLike.
func boundaryKind(sig ir.Signature) ir.BoundaryKind {
	var wireable []ir.PortSpec
	for _, out := range sig.Outputs {
		if out.Wireable {
			wireable = append(wireable, out)
		}
	}
	if len(wireable) == 0 {
		return ir.ActionLike
	}
	if len(sig.Inputs) == 0 && allSourceTypes(wireable) {
		return ir.SourceLike
	}
	for _, out := range wireable {
		if out.Type == ir.TypeEvent {
			return ir.TriggerLike
		}
	}
	return ir.ComputeLike
}

func allSourceTypes(ports []ir.PortSpec) bool {
	for _, p := range ports {
		switch p.Type {
		case ir.TypeNumber, ir.TypeSeries, ir.TypeBool, ir.TypeString:
		default:
			return false
		}
	}
	return true
}
