package compiler

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/ergo/internal/ir"
)

// Instantiation-time error codes (E230-E249)
const (
	ErrNotClusterInstance    = "E230" // node is missing or not a cluster instance
	ErrVersionNotFound       = "E231" // requested cluster version does not exist
	ErrInstanceWiring        = "E232" // parent edge kind cannot feed the cluster's boundary kind
	ErrInstancePortType      = "E233" // parent edge type differs from the cluster input type
	ErrInstanceUnknownPort   = "E234" // parent edge targets an input the cluster does not expose
	ErrRequiredParamUnbound  = "E235" // required cluster parameter neither bound nor exposed
	ErrInstanceBindingType   = "E236" // bound value does not fit the cluster parameter
	ErrInstanceExposure      = "E237" // exposed parameter missing from the parent
	ErrInstanceUnknownParam  = "E238" // binding names a parameter the cluster does not declare
	ErrInstanceSignature     = "E239" // the cluster's signature cannot be inferred
	ErrInstanceUnknownSource = "E240" // parent edge source cannot be resolved
)

// ValidateInstantiation checks one cluster instance node of parent: the
// nested cluster exists, its parameters are bound compatibly, and every
// parent edge into it is legal for its boundary kind and port types.
// Returns all errors found (does not fail-fast).
func ValidateInstantiation(ctx context.Context, parent *ir.ClusterDefinition, nodeID string, env Env) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	inst, ok := parent.Nodes[nodeID]
	if !ok || !inst.Kind.IsCluster() {
		add("nodes."+nodeID, ErrNotClusterInstance, "%q is not a cluster instance in %s", nodeID, parent.Key())
		return errs
	}

	key := inst.Kind.Key()
	child, ok := env.Loader.Load(key.ID, key.Version)
	if !ok {
		add("nodes."+nodeID+".kind", ErrVersionNotFound, "cluster %s not found", key)
		return errs
	}
	sig, err := env.resolver().Resolve(ctx, child)
	if err != nil {
		add("nodes."+nodeID+".kind", ErrInstanceSignature, "cluster %s: %v", key, err)
		return errs
	}
	childKind := sig.Kind.Primitive()

	// E238, E236, E237: bindings
	for _, name := range sortedBindingNames(inst.Bindings) {
		b := inst.Bindings[name]
		field := fmt.Sprintf("nodes.%s.parameter_bindings.%s", nodeID, name)
		spec, ok := child.Parameter(name)
		if !ok {
			add(field, ErrInstanceUnknownParam, "%s declares no parameter %q", key, name)
			continue
		}
		switch b.Type {
		case ir.BindingLiteral:
			if b.Value == nil || !ir.Assignable(b.Value, spec.Type) {
				add(field, ErrInstanceBindingType, "literal does not fit %s parameter %q", spec.Type, name)
			}
		case ir.BindingExposed:
			p, ok := parent.Parameter(b.ParentParam)
			if !ok {
				add(field, ErrInstanceExposure, "exposes %q, which %s does not declare", b.ParentParam, parent.Key())
				continue
			}
			if p.Type != spec.Type && !(p.Type == ir.ParamInt && spec.Type == ir.ParamNumber) {
				add(field, ErrInstanceBindingType, "exposed %s parameter %q cannot fill %s parameter %q", p.Type, b.ParentParam, spec.Type, name)
			}
		}
	}

	// E235: required parameters
	for _, p := range child.Parameters {
		if _, bound := inst.Bindings[p.Name]; !bound && p.Required && p.Default == nil {
			add(fmt.Sprintf("nodes.%s.parameter_bindings", nodeID), ErrRequiredParamUnbound,
				"required parameter %q of %s is not bound", p.Name, key)
		}
	}

	// E232, E233, E234, E240: incoming edges
	for i, e := range parent.Edges {
		if e.To.NodeID != nodeID {
			continue
		}
		field := fmt.Sprintf("edges[%d]", i)

		in, ok := sig.Input(e.To.PortName)
		if !ok {
			add(field+".to", ErrInstanceUnknownPort, "%s exposes no input %q", key, e.To.PortName)
			continue
		}

		if ph, ok := parent.Placeholder(e.From.NodeID); ok {
			if ph.MapsTo.Type != in.Type {
				add(field, ErrInstancePortType, "%s carries %s, %s expects %s", e.From, ph.MapsTo.Type, e.To, in.Type)
			}
			continue
		}

		fromKind, fromType, err := sourcePort(ctx, parent, e.From, env)
		if err != nil {
			add(field+".from", ErrInstanceUnknownSource, "%v", err)
			continue
		}
		if !ir.WiringAllowed(fromKind, childKind) {
			add(field, ErrInstanceWiring, "%s -> %s: %s may not feed %s cluster", e.From, e.To, fromKind, sig.Kind)
		}
		if fromType != in.Type {
			add(field, ErrInstancePortType, "%s carries %s, %s expects %s", e.From, fromType, e.To, in.Type)
		}
	}
	return errs
}

// sourcePort resolves the kind and value type behind an edge source in parent.
func sourcePort(ctx context.Context, parent *ir.ClusterDefinition, ref ir.PortRef, env Env) (ir.PrimitiveKind, ir.ValueType, error) {
	n, ok := parent.Nodes[ref.NodeID]
	if !ok {
		return "", "", fmt.Errorf("unknown node %q", ref.NodeID)
	}
	view, verr := resolveNode(ctx, n, env)
	if verr != nil {
		return "", "", fmt.Errorf("%s", verr.Message)
	}
	p, ok := view.outputs[ref.PortName]
	if !ok {
		return "", "", fmt.Errorf("node %q has no output %q", ref.NodeID, ref.PortName)
	}
	return view.kind, p.typ, nil
}

func sortedBindingNames(bindings map[string]ir.ParameterBinding) []string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedSpecNames(specs map[string]ir.ParameterSpec) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
