package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// AuthoringStep is one (cluster_id, node_id) hop in an authoring path.
// It encodes as a two-element JSON array.
type AuthoringStep struct {
	ClusterID string
	NodeID    string
}

// MarshalJSON implements json.Marshaler.
func (s AuthoringStep) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{s.ClusterID, s.NodeID})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *AuthoringStep) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("authoring step must have 2 elements, got %d", len(pair))
	}
	*s = AuthoringStep{ClusterID: pair[0], NodeID: pair[1]}
	return nil
}

// ImplementationInstance references a catalog entry. It carries identity only.
type ImplementationInstance struct {
	ImplID  string `json:"impl_id"`
	Version string `json:"version"`
}

func (i ImplementationInstance) String() string { return i.ImplID + "@" + i.Version }

// ExpandedNode is a primitive node of a flattened graph.
type ExpandedNode struct {
	RuntimeID      string                 `json:"runtime_id"`
	AuthoringPath  []AuthoringStep        `json:"authoring_path"`
	Implementation ImplementationInstance `json:"implementation"`
	Parameters     Parameters             `json:"parameters"`
}

// EndpointType discriminates Endpoint.
type EndpointType string

const (
	EndpointNodePort      EndpointType = "NodePort"
	EndpointExternalInput EndpointType = "ExternalInput"
)

// Endpoint is one end of an expanded edge: a node port, or an external
// input supplied by whoever instantiates the graph.
type Endpoint struct {
	Type     EndpointType `json:"type"`
	NodeID   string       `json:"node_id,omitempty"`
	PortName string       `json:"port_name,omitempty"`
	Name     string       `json:"name,omitempty"`
}

// NodePort builds a NodePort endpoint.
func NodePort(nodeID, portName string) Endpoint {
	return Endpoint{Type: EndpointNodePort, NodeID: nodeID, PortName: portName}
}

// ExternalInput builds an ExternalInput endpoint.
func ExternalInput(name string) Endpoint {
	return Endpoint{Type: EndpointExternalInput, Name: name}
}

// IsExternal reports whether e is an ExternalInput endpoint.
func (e Endpoint) IsExternal() bool { return e.Type == EndpointExternalInput }

func (e Endpoint) String() string {
	if e.IsExternal() {
		return "external:" + e.Name
	}
	return e.NodeID + "." + e.PortName
}

// ExpandedEdge connects two endpoints of an expanded graph.
type ExpandedEdge struct {
	From Endpoint `json:"from"`
	To   Endpoint `json:"to"`
}

// ExpandedGraph is the flat, primitive-only result of expansion.
//
// BoundaryInputs and BoundaryOutputs exist for signature inference and
// for naming report outputs; the executor never uses them to order or
// gate evaluation.
type ExpandedGraph struct {
	Nodes           map[string]ExpandedNode `json:"nodes"`
	Edges           []ExpandedEdge          `json:"edges"`
	BoundaryInputs  []InputPortSpec         `json:"boundary_inputs"`
	BoundaryOutputs []OutputPortSpec        `json:"boundary_outputs"`
}

// NewExpandedGraph returns an empty graph with non-nil collections.
func NewExpandedGraph() *ExpandedGraph {
	return &ExpandedGraph{
		Nodes:           map[string]ExpandedNode{},
		Edges:           []ExpandedEdge{},
		BoundaryInputs:  []InputPortSpec{},
		BoundaryOutputs: []OutputPortSpec{},
	}
}

// SortedNodeIDs returns runtime ids in lexical order.
func (g *ExpandedGraph) SortedNodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Incoming returns the edges whose target is the given node, in edge order.
func (g *ExpandedGraph) Incoming(nodeID string) []ExpandedEdge {
	var in []ExpandedEdge
	for _, e := range g.Edges {
		if !e.To.IsExternal() && e.To.NodeID == nodeID {
			in = append(in, e)
		}
	}
	return in
}

// Canonical returns the structural IR form of the graph for hashing.
// Edges are sorted so that equal graphs hash equally regardless of the
// order their edges were emitted in.
func (g *ExpandedGraph) Canonical() IRObject {
	nodes := IRObject{}
	for id, n := range g.Nodes {
		path := IRArray{}
		for _, step := range n.AuthoringPath {
			path = append(path, IRArray{IRString(step.ClusterID), IRString(step.NodeID)})
		}
		nodes[id] = IRObject{
			"authoring_path": path,
			"impl_id":        IRString(n.Implementation.ImplID),
			"version":        IRString(n.Implementation.Version),
			"parameters":     n.Parameters.Canonical(),
		}
	}

	edges := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		edges = append(edges, e.From.String()+"->"+e.To.String())
	}
	sort.Strings(edges)

	inputs := IRArray{}
	for _, in := range g.BoundaryInputs {
		inputs = append(inputs, IRObject{
			"name":     IRString(in.Name),
			"type":     IRString(in.MapsTo.Type),
			"required": IRBool(in.MapsTo.Required),
		})
	}
	outputs := IRArray{}
	for _, out := range g.BoundaryOutputs {
		outputs = append(outputs, IRObject{
			"name":    IRString(out.Name),
			"maps_to": IRString(out.MapsTo.String()),
		})
	}

	return IRObject{
		"nodes":            nodes,
		"edges":            StringArray(edges),
		"boundary_inputs":  inputs,
		"boundary_outputs": outputs,
	}
}

// ParseExpandedGraph decodes the wire form, rejecting unknown fields.
func ParseExpandedGraph(data []byte) (*ExpandedGraph, error) {
	var g ExpandedGraph
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("parse expanded graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = map[string]ExpandedNode{}
	}
	for id, n := range g.Nodes {
		if n.RuntimeID == "" {
			n.RuntimeID = id
		} else if n.RuntimeID != id {
			return nil, fmt.Errorf("parse expanded graph: node key %q does not match runtime_id %q", id, n.RuntimeID)
		}
		if n.AuthoringPath == nil {
			n.AuthoringPath = []AuthoringStep{}
		}
		if n.Parameters == nil {
			n.Parameters = Parameters{}
		}
		g.Nodes[id] = n
	}
	for i, e := range g.Edges {
		for _, ep := range []Endpoint{e.From, e.To} {
			switch ep.Type {
			case EndpointNodePort, EndpointExternalInput:
			default:
				return nil, fmt.Errorf("parse expanded graph: edge %d: unknown endpoint type %q", i, ep.Type)
			}
		}
	}
	if g.Edges == nil {
		g.Edges = []ExpandedEdge{}
	}
	if g.BoundaryInputs == nil {
		g.BoundaryInputs = []InputPortSpec{}
	}
	if g.BoundaryOutputs == nil {
		g.BoundaryOutputs = []OutputPortSpec{}
	}
	return &g, nil
}
