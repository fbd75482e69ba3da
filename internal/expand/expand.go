// Package expand flattens nested cluster definitions into a single
// primitive-only graph.
//
// Expansion visits node ids in lexical order and assigns runtime ids
// n0, n1, ... from one counter shared across nesting levels, so the same
// definitions always expand to the same graph. Nodes from the root
// definition get an empty authoring path; nodes from nested instances
// carry the (cluster_id, node_id) chain that led to them.
//
// Inputs are read-only. A failure anywhere aborts the whole expansion.
package expand

import (
	"fmt"
	"slices"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/ir"
)

// Loader resolves nested cluster references.
type Loader interface {
	Load(id, version string) (*ir.ClusterDefinition, bool)
}

// Option configures an expansion.
type Option func(*options)

type options struct {
	params       ir.Parameters
	allowUnbound bool
}

// WithParameters seeds the root definition's parameter scope. Values here
// take precedence over the root's declared defaults.
func WithParameters(params ir.Parameters) Option {
	return func(o *options) { o.params = params }
}

// AllowUnbound leaves parameters that resolve to nothing off the node
// instead of failing. Definition-time checks use it because a cluster is
// validated without a parent context.
func AllowUnbound() Option {
	return func(o *options) { o.allowUnbound = true }
}

// Expand flattens def into an ExpandedGraph. When cat is non-nil every
// Impl node must reference a manifest it knows.
func Expand(def *ir.ClusterDefinition, cat catalog.Catalog, loader Loader, opts ...Option) (*ir.ExpandedGraph, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	b := &builder{
		catalog: cat,
		loader:  loader,
		opts:    o,
		graph:   ir.NewExpandedGraph(),
	}

	scope := ir.Parameters{}
	for _, p := range def.Parameters {
		if p.Default != nil {
			scope[p.Name] = p.Default
		}
	}
	for name, v := range o.params {
		scope[name] = v
	}

	res, err := b.build(def, scope, nil)
	if err != nil {
		return nil, err
	}

	g := b.graph
	g.BoundaryInputs = append(g.BoundaryInputs, def.InputPorts...)
	for _, in := range def.InputPorts {
		for _, target := range res.inputs[in.Name] {
			g.Edges = append(g.Edges, ir.ExpandedEdge{From: ir.ExternalInput(in.Name), To: target})
		}
	}
	for _, out := range def.OutputPorts {
		ep := res.outputs[out.Name]
		g.BoundaryOutputs = append(g.BoundaryOutputs, ir.OutputPortSpec{
			Name:   out.Name,
			MapsTo: ir.PortRef{NodeID: ep.NodeID, PortName: ep.PortName},
		})
	}
	return g, nil
}

type builder struct {
	catalog catalog.Catalog
	loader  Loader
	opts    *options
	graph   *ir.ExpandedGraph
	next    int
	stack   []ir.ClusterKey
}

// result is what a parent needs from an expanded instance: the concrete
// port behind each declared output, and the concrete targets fed by each
// declared input.
type result struct {
	outputs map[string]ir.Endpoint
	inputs  map[string][]ir.Endpoint
}

// node is a resolved child of the definition currently being built:
// either a runtime id for an Impl node or the result of a nested cluster.
type node struct {
	runtimeID string
	nested    *result
	def       *ir.ClusterDefinition
}

func (b *builder) fail(def *ir.ClusterDefinition, nodeID string, code ErrorCode, format string, args ...any) error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cluster: def.Key(),
		NodeID:  nodeID,
		Path:    slices.Clone(b.stack),
	}
}

func (b *builder) build(def *ir.ClusterDefinition, scope ir.Parameters, prefix []ir.AuthoringStep) (*result, error) {
	if len(def.Nodes) == 0 {
		return nil, b.fail(def, "", ErrCodeEmptyCluster, "cluster has no nodes")
	}
	key := def.Key()
	if slices.Contains(b.stack, key) {
		return nil, b.fail(def, "", ErrCodeSelfReference, "cluster %s instantiates itself via %v", key, append(slices.Clone(b.stack), key))
	}
	b.stack = append(b.stack, key)
	defer func() { b.stack = b.stack[:len(b.stack)-1] }()

	root := len(b.stack) == 1
	nodes := make(map[string]node, len(def.Nodes))

	for _, id := range def.SortedNodeIDs() {
		inst := def.Nodes[id]
		step := append(slices.Clone(prefix), ir.AuthoringStep{ClusterID: def.ID, NodeID: id})

		if !inst.Kind.IsCluster() {
			params, err := b.resolveBindings(def, id, inst.Bindings, scope)
			if err != nil {
				return nil, err
			}
			impl := inst.Kind.Implementation()
			if b.catalog != nil {
				if _, ok := b.catalog.Manifest(impl); !ok {
					return nil, b.fail(def, id, ErrCodeMissingPrimitive, "unknown implementation %s", impl)
				}
			}
			path := step
			if root {
				path = []ir.AuthoringStep{}
			}
			rid := fmt.Sprintf("n%d", b.next)
			b.next++
			b.graph.Nodes[rid] = ir.ExpandedNode{
				RuntimeID:      rid,
				AuthoringPath:  path,
				Implementation: impl,
				Parameters:     params,
			}
			nodes[id] = node{runtimeID: rid}
			continue
		}

		child, ok := b.loader.Load(inst.Kind.ClusterID, inst.Kind.Version)
		if !ok || child == nil {
			return nil, b.fail(def, id, ErrCodeMissingCluster, "cluster %s not found", inst.Kind.Key())
		}
		childScope, err := b.resolveBindings(def, id, inst.Bindings, scope)
		if err != nil {
			return nil, err
		}
		for _, p := range child.Parameters {
			if _, set := childScope[p.Name]; !set && p.Default != nil {
				childScope[p.Name] = p.Default
			}
		}
		res, err := b.build(child, childScope, step)
		if err != nil {
			return nil, err
		}
		nodes[id] = node{nested: res, def: child}
	}

	res := &result{
		outputs: map[string]ir.Endpoint{},
		inputs:  map[string][]ir.Endpoint{},
	}

	for _, e := range def.Edges {
		targets, err := b.targets(def, nodes, e)
		if err != nil {
			return nil, err
		}

		if in, ok := b.placeholderInput(def, e.From); ok {
			res.inputs[in] = append(res.inputs[in], targets...)
			continue
		}

		from, err := b.source(def, nodes, e.From)
		if err != nil {
			return nil, err
		}
		for _, to := range targets {
			b.graph.Edges = append(b.graph.Edges, ir.ExpandedEdge{From: from, To: to})
		}
	}

	for _, out := range def.OutputPorts {
		n, ok := nodes[out.MapsTo.NodeID]
		if !ok {
			return nil, b.fail(def, out.MapsTo.NodeID, ErrCodeUnresolvedOutput, "output %q maps to unknown node %q", out.Name, out.MapsTo.NodeID)
		}
		if n.nested == nil {
			res.outputs[out.Name] = ir.NodePort(n.runtimeID, out.MapsTo.PortName)
			continue
		}
		ep, ok := n.nested.outputs[out.MapsTo.PortName]
		if !ok {
			return nil, b.fail(def, out.MapsTo.NodeID, ErrCodeUnresolvedOutput, "output %q maps to undeclared port %s", out.Name, out.MapsTo)
		}
		res.outputs[out.Name] = ep
	}
	return res, nil
}

// resolveBindings turns a node's bindings into concrete values against the
// enclosing scope.
func (b *builder) resolveBindings(def *ir.ClusterDefinition, nodeID string, bindings map[string]ir.ParameterBinding, scope ir.Parameters) (ir.Parameters, error) {
	out := make(ir.Parameters, len(bindings))
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		binding := bindings[name]
		switch binding.Type {
		case ir.BindingLiteral:
			out[name] = binding.Value
		case ir.BindingExposed:
			v, ok := scope[binding.ParentParam]
			if !ok {
				if b.opts.allowUnbound {
					continue
				}
				return nil, b.fail(def, nodeID, ErrCodeUnresolvedBinding,
					"parameter %q is exposed from %q, which has no value", name, binding.ParentParam)
			}
			out[name] = v
		default:
			return nil, b.fail(def, nodeID, ErrCodeUnresolvedBinding, "parameter %q has unknown binding type %q", name, binding.Type)
		}
	}
	return out, nil
}

// placeholderInput reports whether ref reads from an input placeholder and,
// if so, returns the input port name it belongs to.
func (b *builder) placeholderInput(def *ir.ClusterDefinition, ref ir.PortRef) (string, bool) {
	if _, isNode := def.Nodes[ref.NodeID]; isNode {
		return "", false
	}
	in, ok := def.Placeholder(ref.NodeID)
	if !ok {
		return "", false
	}
	return in.Name, true
}

func (b *builder) source(def *ir.ClusterDefinition, nodes map[string]node, ref ir.PortRef) (ir.Endpoint, error) {
	n, ok := nodes[ref.NodeID]
	if !ok {
		return ir.Endpoint{}, b.fail(def, ref.NodeID, ErrCodeUnresolvedEdge, "edge source %s names no node", ref)
	}
	if n.nested == nil {
		return ir.NodePort(n.runtimeID, ref.PortName), nil
	}
	ep, ok := n.nested.outputs[ref.PortName]
	if !ok {
		return ir.Endpoint{}, b.fail(def, ref.NodeID, ErrCodeUnresolvedOutput, "edge source %s is not a declared output", ref)
	}
	return ep, nil
}

func (b *builder) targets(def *ir.ClusterDefinition, nodes map[string]node, e ir.Edge) ([]ir.Endpoint, error) {
	n, ok := nodes[e.To.NodeID]
	if !ok {
		return nil, b.fail(def, e.To.NodeID, ErrCodeUnresolvedEdge, "edge target %s names no node", e.To)
	}
	if n.nested == nil {
		return []ir.Endpoint{ir.NodePort(n.runtimeID, e.To.PortName)}, nil
	}
	if _, declared := n.def.InputPort(e.To.PortName); !declared {
		return nil, b.fail(def, e.To.NodeID, ErrCodeUnresolvedEdge, "edge target %s is not a declared input", e.To)
	}
	return slices.Clone(n.nested.inputs[e.To.PortName]), nil
}
