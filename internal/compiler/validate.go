package compiler

import (
	"context"
	"fmt"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

// Definition-time error codes (E200-E229)
const (
	// Structure (E200-E209)
	ErrEmptyCluster          = "E200" // at least one node required
	ErrUnknownEdgeNode       = "E201" // edge endpoint names no node or placeholder
	ErrUnknownEdgePort       = "E202" // edge endpoint names no port on its node
	ErrForbiddenWiring       = "E203" // edge breaks the wiring matrix
	ErrDuplicateInputPort    = "E204" // duplicate input port name
	ErrDuplicateOutputPort   = "E205" // duplicate output port name
	ErrDuplicateParameter    = "E206" // duplicate parameter name
	ErrDefaultTypeMismatch   = "E207" // parameter default does not fit its type
	ErrUnknownOutputMapping  = "E208" // output port maps to no node port
	ErrPlaceholderConflict   = "E209" // placeholder name collides with a node id
	ErrUnknownPrimitive      = "E210" // impl node not in the catalog
	ErrUnknownCluster        = "E211" // nested cluster not in the store
	ErrInferenceFailed       = "E212" // signature cannot be inferred
	ErrDeclaredSignature     = "E213" // declared signature disagrees with inferred
	ErrInvalidParameterType  = "E214" // parameter type is not a known type
	ErrEdgeIntoPlaceholder   = "E215" // edge targets an input placeholder
	ErrUndeclaredExposure    = "E216" // binding exposes a parameter the cluster does not declare
	ErrUnknownBinding        = "E217" // binding names a parameter the node does not take
	ErrBindingTypeMismatch   = "E218" // literal or exposed parameter type does not fit
	ErrInvalidPortType       = "E219" // input placeholder has an unknown value type
	ErrRequiredParamNoSource = "E220" // required primitive parameter neither bound nor defaulted
)

// ValidationError represents a cluster validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Env is what cluster validation resolves references against.
type Env struct {
	Catalog  catalog.Catalog
	Loader   expand.Loader
	Resolver *signature.Resolver
}

func (env Env) resolver() *signature.Resolver {
	if env.Resolver != nil {
		return env.Resolver
	}
	return &signature.Resolver{Catalog: env.Catalog, Loader: env.Loader}
}

// port is the view of a node port shared by primitives and nested clusters.
type port struct {
	typ ir.ValueType
}

// nodeView is a definition node resolved against the environment.
type nodeView struct {
	kind    ir.PrimitiveKind
	inputs  map[string]port
	outputs map[string]port
	params  map[string]ir.ParameterSpec
}

// ValidateDefinition checks a cluster definition on its own, with no
// parent context. Returns all errors found (does not fail-fast).
//
// Structural checks run first; signature inference and the declared
// signature check only run on a structurally sound definition.
func ValidateDefinition(ctx context.Context, def *ir.ClusterDefinition, env Env) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	// E200: at least one node
	if len(def.Nodes) == 0 {
		add("nodes", ErrEmptyCluster, "cluster %s has no nodes", def.Key())
		return errs
	}

	// E204, E209, E219: input ports
	inputNames := map[string]bool{}
	for i, in := range def.InputPorts {
		field := fmt.Sprintf("input_ports[%d]", i)
		if inputNames[in.Name] {
			add(field+".name", ErrDuplicateInputPort, "duplicate input port %q", in.Name)
		}
		inputNames[in.Name] = true
		if _, clash := def.Nodes[in.MapsTo.Name]; clash {
			add(field+".maps_to.name", ErrPlaceholderConflict, "placeholder %q is also a node id", in.MapsTo.Name)
		}
		if !in.MapsTo.Type.Valid() {
			add(field+".maps_to.type", ErrInvalidPortType, "unknown value type %q", in.MapsTo.Type)
		}
	}

	// E205: output port names
	outputNames := map[string]bool{}
	for i, out := range def.OutputPorts {
		if outputNames[out.Name] {
			add(fmt.Sprintf("output_ports[%d].name", i), ErrDuplicateOutputPort, "duplicate output port %q", out.Name)
		}
		outputNames[out.Name] = true
	}

	// E206, E207, E214: parameters
	paramNames := map[string]bool{}
	for i, p := range def.Parameters {
		field := fmt.Sprintf("parameters[%d]", i)
		if paramNames[p.Name] {
			add(field+".name", ErrDuplicateParameter, "duplicate parameter %q", p.Name)
		}
		paramNames[p.Name] = true
		if !p.Type.Valid() {
			add(field+".type", ErrInvalidParameterType, "unknown parameter type %q", p.Type)
			continue
		}
		if p.Default != nil && !ir.Assignable(p.Default, p.Type) {
			add(field+".default", ErrDefaultTypeMismatch, "default for %q is %s, declared %s", p.Name, p.Default.Type(), p.Type)
		}
	}

	// E210, E211: resolve every node
	views := make(map[string]nodeView, len(def.Nodes))
	for _, id := range def.SortedNodeIDs() {
		n := def.Nodes[id]
		view, err := resolveNode(ctx, n, env)
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		views[id] = view

		// E216, E217, E218, E220: bindings
		errs = append(errs, checkBindings(def, id, n, view)...)
	}

	// E201, E202, E203, E215: edges
	for i, e := range def.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		var (
			fromKind ir.PrimitiveKind
			fromOK   bool
		)
		if ph, ok := def.Placeholder(e.From.NodeID); ok {
			if e.From.PortName != ph.MapsTo.Name {
				add(field+".from", ErrUnknownEdgePort, "placeholder %q has no port %q", ph.MapsTo.Name, e.From.PortName)
			}
		} else if v, ok := views[e.From.NodeID]; ok {
			if _, ok := v.outputs[e.From.PortName]; !ok {
				add(field+".from", ErrUnknownEdgePort, "node %q has no output %q", e.From.NodeID, e.From.PortName)
			}
			fromKind, fromOK = v.kind, true
		} else if _, exists := def.Nodes[e.From.NodeID]; !exists {
			add(field+".from", ErrUnknownEdgeNode, "unknown node %q", e.From.NodeID)
		}

		if _, ok := def.Placeholder(e.To.NodeID); ok {
			add(field+".to", ErrEdgeIntoPlaceholder, "edge targets input placeholder %q", e.To.NodeID)
			continue
		}
		v, ok := views[e.To.NodeID]
		if !ok {
			if _, exists := def.Nodes[e.To.NodeID]; !exists {
				add(field+".to", ErrUnknownEdgeNode, "unknown node %q", e.To.NodeID)
			}
			continue
		}
		if _, ok := v.inputs[e.To.PortName]; !ok {
			add(field+".to", ErrUnknownEdgePort, "node %q has no input %q", e.To.NodeID, e.To.PortName)
		}
		if fromOK && !ir.WiringAllowed(fromKind, v.kind) {
			add(field, ErrForbiddenWiring, "%s -> %s: %s may not feed %s", e.From, e.To, fromKind, v.kind)
		}
	}

	// E208: outputs map to real node ports
	for i, out := range def.OutputPorts {
		v, ok := views[out.MapsTo.NodeID]
		if !ok {
			if _, exists := def.Nodes[out.MapsTo.NodeID]; !exists {
				add(fmt.Sprintf("output_ports[%d].maps_to", i), ErrUnknownOutputMapping, "output %q maps to unknown node %q", out.Name, out.MapsTo.NodeID)
			}
			continue
		}
		if _, ok := v.outputs[out.MapsTo.PortName]; !ok {
			add(fmt.Sprintf("output_ports[%d].maps_to", i), ErrUnknownOutputMapping, "output %q maps to %s, which does not exist", out.Name, out.MapsTo)
		}
	}

	if len(errs) > 0 {
		return errs
	}

	// E212, E213: inference and declared signature
	inferred, err := env.resolver().Resolve(ctx, def)
	if err != nil {
		add("signature", ErrInferenceFailed, "%v", err)
		return errs
	}
	if def.DeclaredSignature != nil {
		for _, v := range signature.CheckDeclared(*def.DeclaredSignature, inferred) {
			field := "declared_signature"
			if v.Port != "" {
				field += "." + v.Port
			}
			add(field, ErrDeclaredSignature, "%s", v.Error())
		}
	}
	return errs
}

// resolveNode looks up the manifest or nested signature behind n.
func resolveNode(ctx context.Context, n ir.NodeInstance, env Env) (nodeView, *ValidationError) {
	field := fmt.Sprintf("nodes.%s.kind", n.ID)

	if !n.Kind.IsCluster() {
		m, ok := env.Catalog.Manifest(n.Kind.Implementation())
		if !ok {
			return nodeView{}, &ValidationError{Field: field, Code: ErrUnknownPrimitive,
				Message: fmt.Sprintf("catalog has no %s", n.Kind.Implementation())}
		}
		v := nodeView{
			kind:    m.Kind,
			inputs:  map[string]port{},
			outputs: map[string]port{},
			params:  map[string]ir.ParameterSpec{},
		}
		for _, in := range m.Inputs {
			v.inputs[in.Name] = port{typ: in.Type}
		}
		for _, out := range m.Outputs {
			v.outputs[out.Name] = port{typ: out.Type}
		}
		for _, p := range m.Parameters {
			v.params[p.Name] = p
		}
		return v, nil
	}

	key := n.Kind.Key()
	child, ok := env.Loader.Load(key.ID, key.Version)
	if !ok {
		return nodeView{}, &ValidationError{Field: field, Code: ErrUnknownCluster,
			Message: fmt.Sprintf("cluster %s not found", key)}
	}
	sig, err := env.resolver().Resolve(ctx, child)
	if err != nil {
		return nodeView{}, &ValidationError{Field: field, Code: ErrInferenceFailed,
			Message: fmt.Sprintf("cluster %s: %v", key, err)}
	}
	return clusterView(child, sig), nil
}

// clusterView exposes a nested cluster through its signature. Ports the
// signature hides are not reachable from the parent.
func clusterView(child *ir.ClusterDefinition, sig ir.Signature) nodeView {
	v := nodeView{
		kind:    sig.Kind.Primitive(),
		inputs:  map[string]port{},
		outputs: map[string]port{},
		params:  map[string]ir.ParameterSpec{},
	}
	for _, in := range sig.Inputs {
		v.inputs[in.Name] = port{typ: in.Type}
	}
	for _, out := range sig.Outputs {
		v.outputs[out.Name] = port{typ: out.Type}
	}
	for _, p := range child.Parameters {
		v.params[p.Name] = p
	}
	return v
}

// checkBindings validates one node's parameter bindings against what the
// node accepts and what def declares.
func checkBindings(def *ir.ClusterDefinition, id string, n ir.NodeInstance, view nodeView) []ValidationError {
	var errs []ValidationError
	add := func(field, code, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	for _, name := range sortedBindingNames(n.Bindings) {
		b := n.Bindings[name]
		field := fmt.Sprintf("nodes.%s.parameter_bindings.%s", id, name)
		spec, ok := view.params[name]
		if !ok {
			add(field, ErrUnknownBinding, "%s takes no parameter %q", n.Kind, name)
			continue
		}
		switch b.Type {
		case ir.BindingLiteral:
			if b.Value == nil || !ir.Assignable(b.Value, spec.Type) {
				add(field, ErrBindingTypeMismatch, "literal does not fit %s parameter %q", spec.Type, name)
			}
		case ir.BindingExposed:
			parent, ok := def.Parameter(b.ParentParam)
			if !ok {
				add(field, ErrUndeclaredExposure, "exposes %q, which %s does not declare", b.ParentParam, def.Key())
				continue
			}
			if parent.Type != spec.Type && !(parent.Type == ir.ParamInt && spec.Type == ir.ParamNumber) {
				add(field, ErrBindingTypeMismatch, "exposed %s parameter %q cannot fill %s parameter %q", parent.Type, b.ParentParam, spec.Type, name)
			}
		}
	}

	// Primitive parameters must resolve at expansion. Nested cluster
	// parameters are checked at instantiation.
	if !n.Kind.IsCluster() {
		for _, name := range sortedSpecNames(view.params) {
			spec := view.params[name]
			if _, bound := n.Bindings[name]; !bound && spec.Required && spec.Default == nil {
				add(fmt.Sprintf("nodes.%s.parameter_bindings", id), ErrRequiredParamNoSource,
					"required parameter %q of %s is not bound", name, n.Kind)
			}
		}
	}
	return errs
}
