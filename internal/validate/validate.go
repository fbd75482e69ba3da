// Package validate checks a fully expanded graph before execution and
// compiles it into an evaluation plan.
//
// Validation runs on the unified graph, after every cluster has been
// flattened, so the checks here see primitive manifests only. Every
// violation found is reported; nothing short-circuits except that the
// cycle check and topological order need the node set to be resolvable.
package validate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/ir"
)

// ErrorKind categorizes expansion-time validation errors.
type ErrorKind string

const (
	UnknownPrimitive     ErrorKind = "UnknownPrimitive"
	MissingRequiredInput ErrorKind = "MissingRequiredInput"
	TypeMismatch         ErrorKind = "TypeMismatch"
	InvalidWiring        ErrorKind = "InvalidWiring"
	UngatedAction        ErrorKind = "UngatedAction"
	CycleDetected        ErrorKind = "CycleDetected"
)

// Error is one validation failure. Location names the node, port or edge
// the failure was found at, when there is one.
type Error struct {
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"message"`
	Location string    `json:"location,omitempty"`
}

func (e Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Location, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Result is the outcome of validating one graph.
type Result struct {
	Success bool    `json:"success"`
	Errors  []Error `json:"errors"`
}

// Err joins the errors of a failed result, or returns nil.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Has reports whether r contains an error of kind k.
func (r Result) Has(k ErrorKind) bool {
	for _, e := range r.Errors {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// Plan is a validated graph ready for execution.
type Plan struct {
	Graph *ir.ExpandedGraph

	// Order lists runtime ids in evaluation order. Ties between
	// independent nodes break by lexical runtime id.
	Order []string

	// Manifests holds the manifest of every node by runtime id.
	Manifests map[string]*ir.Manifest

	// Inputs maps runtime id -> input port -> the node port feeding it.
	Inputs map[string]map[string]ir.Endpoint
}

// Validate checks g against cat.
func Validate(g *ir.ExpandedGraph, cat catalog.Catalog) Result {
	_, res := Compile(g, cat)
	return res
}

// Compile validates g and, when it is valid, returns its evaluation plan.
// The plan is nil whenever the result is not successful.
func Compile(g *ir.ExpandedGraph, cat catalog.Catalog) (*Plan, Result) {
	c := &checker{
		graph:     g,
		manifests: make(map[string]*ir.Manifest, len(g.Nodes)),
		inputs:    make(map[string]map[string]ir.Endpoint, len(g.Nodes)),
		succ:      make(map[string][]string, len(g.Nodes)),
		indegree:  make(map[string]int, len(g.Nodes)),
	}

	c.checkNodes(cat)
	c.checkEdges()
	c.checkRequiredInputs()
	c.checkActionGating()
	order := c.topoOrder()

	if len(c.errs) > 0 {
		return nil, Result{Success: false, Errors: c.errs}
	}
	return &Plan{
		Graph:     g,
		Order:     order,
		Manifests: c.manifests,
		Inputs:    c.inputs,
	}, Result{Success: true, Errors: []Error{}}
}

type checker struct {
	graph     *ir.ExpandedGraph
	manifests map[string]*ir.Manifest
	inputs    map[string]map[string]ir.Endpoint
	succ      map[string][]string
	indegree  map[string]int
	errs      []Error
}

func (c *checker) add(kind ErrorKind, location, format string, args ...any) {
	c.errs = append(c.errs, Error{Kind: kind, Location: location, Message: fmt.Sprintf(format, args...)})
}

// checkNodes resolves manifests and checks resolved parameters.
func (c *checker) checkNodes(cat catalog.Catalog) {
	for _, id := range c.graph.SortedNodeIDs() {
		n := c.graph.Nodes[id]
		c.inputs[id] = map[string]ir.Endpoint{}
		c.indegree[id] = 0

		m, ok := cat.Manifest(n.Implementation)
		if !ok {
			c.add(UnknownPrimitive, id, "catalog has no %s", n.Implementation)
			continue
		}
		c.manifests[id] = m

		for _, name := range n.Parameters.SortedNames() {
			v := n.Parameters[name]
			spec, ok := m.Parameter(name)
			if !ok {
				c.add(TypeMismatch, id+".params."+name, "%s takes no parameter %q", n.Implementation, name)
				continue
			}
			if !ir.Assignable(v, spec.Type) {
				c.add(TypeMismatch, id+".params."+name, "parameter %q is %s, declared %s", name, v.Type(), spec.Type)
			}
		}
		for _, p := range m.Parameters {
			if _, set := n.Parameters[p.Name]; !set && p.Required && p.Default == nil {
				c.add(MissingRequiredInput, id+".params."+p.Name, "required parameter %q of %s is not set", p.Name, n.Implementation)
			}
		}
	}
}

// checkEdges checks endpoints, port types and the wiring matrix, and
// records the dependency edges the topological order is built from.
func (c *checker) checkEdges() {
	for i, e := range c.graph.Edges {
		loc := fmt.Sprintf("edges[%d]", i)

		if e.To.IsExternal() {
			c.add(InvalidWiring, loc, "external input %q may not be an edge target", e.To.Name)
			continue
		}
		if e.From.IsExternal() {
			c.add(InvalidWiring, loc, "external input %q is unbound in an executable graph", e.From.Name)
			continue
		}

		fromM, fromOK := c.endpointManifest(loc, e.From)
		toM, toOK := c.endpointManifest(loc, e.To)
		if !fromOK || !toOK {
			continue
		}

		out, ok := fromM.Output(e.From.PortName)
		if !ok {
			c.add(InvalidWiring, loc, "%s has no output %q", e.From.NodeID, e.From.PortName)
			continue
		}
		in, ok := toM.Input(e.To.PortName)
		if !ok {
			c.add(InvalidWiring, loc, "%s has no input %q", e.To.NodeID, e.To.PortName)
			continue
		}

		if !ir.WiringAllowed(fromM.Kind, toM.Kind) {
			c.add(InvalidWiring, loc, "%s -> %s: %s may not feed %s", e.From, e.To, fromM.Kind, toM.Kind)
		}
		if out.Type != in.Type {
			c.add(TypeMismatch, loc, "%s carries %s, %s expects %s", e.From, out.Type, e.To, in.Type)
		}
		if prev, dup := c.inputs[e.To.NodeID][e.To.PortName]; dup {
			c.add(InvalidWiring, loc, "%s is already fed by %s", e.To, prev)
			continue
		}

		c.inputs[e.To.NodeID][e.To.PortName] = e.From
		c.succ[e.From.NodeID] = append(c.succ[e.From.NodeID], e.To.NodeID)
		c.indegree[e.To.NodeID]++
	}
}

func (c *checker) endpointManifest(loc string, ep ir.Endpoint) (*ir.Manifest, bool) {
	if _, exists := c.graph.Nodes[ep.NodeID]; !exists {
		c.add(InvalidWiring, loc, "unknown node %q", ep.NodeID)
		return nil, false
	}
	m, ok := c.manifests[ep.NodeID]
	return m, ok
}

func (c *checker) checkRequiredInputs() {
	for _, id := range c.graph.SortedNodeIDs() {
		m, ok := c.manifests[id]
		if !ok {
			continue
		}
		for _, in := range m.Inputs {
			if _, fed := c.inputs[id][in.Name]; !fed && in.Required {
				c.add(MissingRequiredInput, id+"."+in.Name, "required input %q of %s is not connected", in.Name, m.Implementation())
			}
		}
	}
}

// checkActionGating requires every Action to be fed by at least one
// Trigger and by nothing else.
func (c *checker) checkActionGating() {
	for _, id := range c.graph.SortedNodeIDs() {
		m, ok := c.manifests[id]
		if !ok || m.Kind != ir.KindAction {
			continue
		}
		gated, ungated := false, false
		for _, port := range sortedPorts(c.inputs[id]) {
			from := c.inputs[id][port]
			fromM, ok := c.manifests[from.NodeID]
			if !ok {
				continue
			}
			if fromM.Kind == ir.KindTrigger {
				gated = true
				continue
			}
			ungated = true
			c.add(UngatedAction, id+"."+port, "action %s is fed by %s %s, not a trigger", id, fromM.Kind, from)
		}
		if !gated && !ungated {
			c.add(UngatedAction, id, "action %s has no trigger upstream", id)
		}
	}
}

// topoOrder runs Kahn's algorithm with a sorted ready set. Nodes left over
// are on cycles, which are reported one per strongly connected component.
func (c *checker) topoOrder() []string {
	indegree := make(map[string]int, len(c.indegree))
	var ready []string
	for id, d := range c.indegree {
		indegree[id] = d
		if d == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(c.graph.Nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range c.succ[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = insertSorted(ready, next)
			}
		}
	}

	if len(order) < len(c.graph.Nodes) {
		for _, cycle := range findCycles(c.succ) {
			c.add(CycleDetected, cycle[0], "cycle: %s", strings.Join(cycle, " -> "))
		}
	}
	return order
}

func insertSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

func sortedPorts(ports map[string]ir.Endpoint) []string {
	names := make([]string, 0, len(ports))
	for name := range ports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
