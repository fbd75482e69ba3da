package compiler

import (
	"encoding/json"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/primitive"
)

// CompileCluster parses a CUE value into a ClusterDefinition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the cluster struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`cluster: threshold_gate: { ... }`)
//	def, err := CompileCluster(v.LookupPath(cue.ParsePath("cluster.threshold_gate")))
//
// A cluster looks like:
//
//	threshold_gate: {
//		version: "1.0.0"
//		inputs: signal: {type: "Number", required: true}
//		parameters: threshold: {type: "Number", default: 0}
//		nodes: {
//			limit: {impl: "number_source", params: value: {exposed: "threshold"}}
//			cmp:   {impl: "gt"}
//			trig:  {impl: "emit_if_true"}
//		}
//		edges: [
//			{from: "signal.signal", to: "cmp.a"},
//			{from: "limit.value", to: "cmp.b"},
//			{from: "cmp.result", to: "trig.input"},
//		]
//		outputs: event: "trig.event"
//	}
//
// Impl nodes default to the core primitive version. Parameter literals
// are plain CUE values; {exposed: "name"} forwards a cluster parameter and
// {enum: "name"} marks an enum literal.
func CompileCluster(v cue.Value) (*ir.ClusterDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.ClusterDefinition{
		Nodes:       map[string]ir.NodeInstance{},
		Edges:       []ir.Edge{},
		InputPorts:  []ir.InputPortSpec{},
		OutputPorts: []ir.OutputPortSpec{},
		Parameters:  []ir.ParameterSpec{},
	}

	// Cluster id comes from the struct label unless overridden
	if labels := v.Path().Selectors(); len(labels) > 0 {
		if last := labels[len(labels)-1]; last.LabelType() == cue.StringLabel {
			def.ID = last.Unquoted()
		}
	}
	if idVal := v.LookupPath(cue.ParsePath("id")); idVal.Exists() {
		id, err := idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.ID = id
	}
	if def.ID == "" {
		return nil, &CompileError{Field: "id", Message: "cluster id is required", Pos: v.Pos()}
	}

	version, err := requiredString(v, "version")
	if err != nil {
		return nil, err
	}
	def.Version = version

	if def.Parameters, err = parseParameters(v); err != nil {
		return nil, err
	}
	if def.InputPorts, err = parseInputs(v); err != nil {
		return nil, err
	}
	if err := parseNodes(v, def); err != nil {
		return nil, err
	}
	if def.Edges, err = parseEdges(v); err != nil {
		return nil, err
	}
	if def.OutputPorts, err = parseOutputs(v); err != nil {
		return nil, err
	}

	sigVal := v.LookupPath(cue.ParsePath("signature"))
	if sigVal.Exists() {
		sig, err := parseSignature(sigVal)
		if err != nil {
			return nil, err
		}
		def.DeclaredSignature = sig
	}

	return def, nil
}

// parseParameters extracts cluster parameter declarations in field order.
func parseParameters(v cue.Value) ([]ir.ParameterSpec, error) {
	specs := []ir.ParameterSpec{}
	paramsVal := v.LookupPath(cue.ParsePath("parameters"))
	if !paramsVal.Exists() {
		return specs, nil
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		pv := iter.Value()

		typ, err := requiredString(pv, "type")
		if err != nil {
			return nil, err
		}
		spec := ir.ParameterSpec{Name: name, Type: ir.ParameterType(typ)}

		if reqVal := pv.LookupPath(cue.ParsePath("required")); reqVal.Exists() {
			if spec.Required, err = reqVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if defVal := pv.LookupPath(cue.ParsePath("default")); defVal.Exists() {
			d, err := parseLiteral(defVal, spec.Type)
			if err != nil {
				return nil, err
			}
			spec.Default = d
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// parseInputs extracts input ports. The placeholder name defaults to the
// port name.
func parseInputs(v cue.Value) ([]ir.InputPortSpec, error) {
	ports := []ir.InputPortSpec{}
	inputsVal := v.LookupPath(cue.ParsePath("inputs"))
	if !inputsVal.Exists() {
		return ports, nil
	}

	iter, err := inputsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		iv := iter.Value()

		typ, err := requiredString(iv, "type")
		if err != nil {
			return nil, err
		}
		ph := ir.GraphInputPlaceholder{Name: name, Type: ir.ValueType(typ)}
		if phVal := iv.LookupPath(cue.ParsePath("placeholder")); phVal.Exists() {
			if ph.Name, err = phVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		if reqVal := iv.LookupPath(cue.ParsePath("required")); reqVal.Exists() {
			if ph.Required, err = reqVal.Bool(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		ports = append(ports, ir.InputPortSpec{Name: name, MapsTo: ph})
	}
	return ports, nil
}

// parseNodes extracts node instances into def.Nodes.
func parseNodes(v cue.Value, def *ir.ClusterDefinition) error {
	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	if !nodesVal.Exists() {
		return nil
	}

	iter, err := nodesVal.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		id := iter.Selector().Unquoted()
		nv := iter.Value()
		field := "nodes." + id

		implVal := nv.LookupPath(cue.ParsePath("impl"))
		clusterVal := nv.LookupPath(cue.ParsePath("cluster"))
		var kind ir.NodeKind
		switch {
		case implVal.Exists() && clusterVal.Exists():
			return &CompileError{Field: field, Message: "node sets both impl and cluster", Pos: nv.Pos()}
		case implVal.Exists():
			implID, err := implVal.String()
			if err != nil {
				return formatCUEError(err)
			}
			version := primitive.CoreVersion
			if verVal := nv.LookupPath(cue.ParsePath("version")); verVal.Exists() {
				if version, err = verVal.String(); err != nil {
					return formatCUEError(err)
				}
			}
			kind = ir.Impl(implID, version)
		case clusterVal.Exists():
			clusterID, err := clusterVal.String()
			if err != nil {
				return formatCUEError(err)
			}
			version, err := requiredString(nv, "version")
			if err != nil {
				return err
			}
			kind = ir.ClusterRef(clusterID, version)
		default:
			return &CompileError{Field: field, Message: "node needs impl or cluster", Pos: nv.Pos()}
		}

		bindings, err := parseBindings(nv)
		if err != nil {
			return err
		}
		def.Nodes[id] = ir.NodeInstance{ID: id, Kind: kind, Bindings: bindings}
	}
	return nil
}

// parseBindings extracts a node's parameter bindings.
func parseBindings(nv cue.Value) (map[string]ir.ParameterBinding, error) {
	bindings := map[string]ir.ParameterBinding{}
	paramsVal := nv.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return bindings, nil
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		bv := iter.Value()

		if exposedVal := bv.LookupPath(cue.ParsePath("exposed")); exposedVal.Exists() {
			parent, err := exposedVal.String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			bindings[name] = ir.Exposed(parent)
			continue
		}
		lit, err := parseLiteral(bv, "")
		if err != nil {
			return nil, err
		}
		bindings[name] = ir.Literal(lit)
	}
	return bindings, nil
}

// parseLiteral converts a concrete CUE value to a ParameterValue. When want
// is set, numbers are converted to that type; otherwise the CUE kind decides
// (int -> Int, float -> Number).
func parseLiteral(v cue.Value, want ir.ParameterType) (ir.ParameterValue, error) {
	if enumVal := v.LookupPath(cue.ParsePath("enum")); enumVal.Exists() {
		s, err := enumVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.EnumValue(s), nil
	}

	switch v.Kind() {
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.BoolValue(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if want == ir.ParamEnum {
			return ir.EnumValue(s), nil
		}
		return ir.StringParam(s), nil
	case cue.IntKind:
		if want == ir.ParamNumber {
			f, err := v.Float64()
			if err != nil {
				return nil, formatCUEError(err)
			}
			return ir.NumberValue(f), nil
		}
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IntValue(i), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.NumberValue(f), nil
	default:
		return nil, &CompileError{
			Field:   "params",
			Message: fmt.Sprintf("unsupported literal kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// parseEdges extracts edges in list order.
func parseEdges(v cue.Value) ([]ir.Edge, error) {
	edges := []ir.Edge{}
	edgesVal := v.LookupPath(cue.ParsePath("edges"))
	if !edgesVal.Exists() {
		return edges, nil
	}

	iter, err := edgesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ev := iter.Value()
		from, err := requiredPortRef(ev, "from")
		if err != nil {
			return nil, err
		}
		to, err := requiredPortRef(ev, "to")
		if err != nil {
			return nil, err
		}
		edges = append(edges, ir.Edge{From: from, To: to})
	}
	return edges, nil
}

// parseOutputs extracts output ports in field order.
func parseOutputs(v cue.Value) ([]ir.OutputPortSpec, error) {
	ports := []ir.OutputPortSpec{}
	outputsVal := v.LookupPath(cue.ParsePath("outputs"))
	if !outputsVal.Exists() {
		return ports, nil
	}

	iter, err := outputsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		ref, err := splitPortRef(s, "outputs."+name, iter.Value().Pos())
		if err != nil {
			return nil, err
		}
		ports = append(ports, ir.OutputPortSpec{Name: name, MapsTo: ref})
	}
	return ports, nil
}

// parseSignature decodes a declared signature through its JSON form.
func parseSignature(v cue.Value) (*ir.Signature, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	sig := &ir.Signature{Inputs: []ir.PortSpec{}, Outputs: []ir.PortSpec{}}
	if err := json.Unmarshal(data, sig); err != nil {
		return nil, &CompileError{Field: "signature", Message: err.Error(), Pos: v.Pos()}
	}
	if !sig.Kind.Valid() {
		return nil, &CompileError{Field: "signature.kind", Message: fmt.Sprintf("unknown boundary kind %q", sig.Kind), Pos: v.Pos()}
	}
	return sig, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredPortRef(v cue.Value, field string) (ir.PortRef, error) {
	s, err := requiredString(v, field)
	if err != nil {
		return ir.PortRef{}, err
	}
	return splitPortRef(s, "edges."+field, v.Pos())
}

// splitPortRef parses "node.port".
func splitPortRef(s, field string, pos token.Pos) (ir.PortRef, error) {
	node, port, ok := strings.Cut(s, ".")
	if !ok || node == "" || port == "" {
		return ir.PortRef{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("port reference %q must be node.port", s),
			Pos:     pos,
		}
	}
	return ir.PortRef{NodeID: node, PortName: port}, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
