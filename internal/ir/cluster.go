package ir

import (
	"encoding/json"
	"fmt"
	"sort"
)

// NodeKindType discriminates NodeKind.
type NodeKindType string

const (
	NodeImpl    NodeKindType = "Impl"
	NodeCluster NodeKindType = "Cluster"
)

// NodeKind says what a NodeInstance instantiates: a catalog implementation
// or a nested cluster. Exactly one of ImplID and ClusterID is set.
type NodeKind struct {
	Type      NodeKindType `json:"type"`
	ImplID    string       `json:"impl_id,omitempty"`
	ClusterID string       `json:"cluster_id,omitempty"`
	Version   string       `json:"version"`
}

// Impl builds an Impl node kind.
func Impl(implID, version string) NodeKind {
	return NodeKind{Type: NodeImpl, ImplID: implID, Version: version}
}

// ClusterRef builds a Cluster node kind.
func ClusterRef(clusterID, version string) NodeKind {
	return NodeKind{Type: NodeCluster, ClusterID: clusterID, Version: version}
}

// IsCluster reports whether k refers to a nested cluster.
func (k NodeKind) IsCluster() bool { return k.Type == NodeCluster }

// Key returns the (id, version) pair for a cluster kind.
func (k NodeKind) Key() ClusterKey {
	return ClusterKey{ID: k.ClusterID, Version: k.Version}
}

// Implementation returns the implementation reference for an Impl kind.
func (k NodeKind) Implementation() ImplementationInstance {
	return ImplementationInstance{ImplID: k.ImplID, Version: k.Version}
}

func (k NodeKind) String() string {
	if k.IsCluster() {
		return fmt.Sprintf("cluster %s@%s", k.ClusterID, k.Version)
	}
	return fmt.Sprintf("impl %s@%s", k.ImplID, k.Version)
}

// BindingType discriminates ParameterBinding.
type BindingType string

const (
	BindingLiteral BindingType = "Literal"
	BindingExposed BindingType = "Exposed"
)

// ParameterBinding binds a node parameter either to a literal value or to a
// parameter of the enclosing cluster.
type ParameterBinding struct {
	Type        BindingType
	Value       ParameterValue // Literal only
	ParentParam string         // Exposed only
}

// Literal binds a parameter to a concrete value.
func Literal(v ParameterValue) ParameterBinding {
	return ParameterBinding{Type: BindingLiteral, Value: v}
}

// Exposed forwards a parameter from the enclosing cluster.
func Exposed(parentParam string) ParameterBinding {
	return ParameterBinding{Type: BindingExposed, ParentParam: parentParam}
}

type bindingWire struct {
	Type        BindingType     `json:"type"`
	Value       json.RawMessage `json:"value,omitempty"`
	ParentParam string          `json:"parent_param,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (b ParameterBinding) MarshalJSON() ([]byte, error) {
	w := bindingWire{Type: b.Type}
	switch b.Type {
	case BindingLiteral:
		raw, err := MarshalParameterValue(b.Value)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case BindingExposed:
		w.ParentParam = b.ParentParam
	default:
		return nil, fmt.Errorf("unknown binding type %q", b.Type)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *ParameterBinding) UnmarshalJSON(data []byte) error {
	var w bindingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch w.Type {
	case BindingLiteral:
		v, err := UnmarshalParameterValue(w.Value)
		if err != nil {
			return err
		}
		*b = Literal(v)
	case BindingExposed:
		if w.ParentParam == "" {
			return fmt.Errorf("Exposed binding requires parent_param")
		}
		*b = Exposed(w.ParentParam)
	default:
		return fmt.Errorf("unknown binding type %q", w.Type)
	}
	return nil
}

// NodeInstance is one node of a cluster definition.
type NodeInstance struct {
	ID       string                      `json:"id"`
	Kind     NodeKind                    `json:"kind"`
	Bindings map[string]ParameterBinding `json:"parameter_bindings"`
}

// PortRef names a port on a node. It is used for both ends of an edge.
type PortRef struct {
	NodeID   string `json:"node_id"`
	PortName string `json:"port_name"`
}

func (p PortRef) String() string { return p.NodeID + "." + p.PortName }

// Edge connects an output port to an input port inside one cluster.
type Edge struct {
	From PortRef `json:"from"`
	To   PortRef `json:"to"`
}

// GraphInputPlaceholder is the node id an input port is exposed under.
// Internal edges read from it as if it were a node with a single output of
// the same name.
type GraphInputPlaceholder struct {
	Name     string    `json:"name"`
	Type     ValueType `json:"type"`
	Required bool      `json:"required"`
}

// InputPortSpec declares a cluster input.
type InputPortSpec struct {
	Name   string                `json:"name"`
	MapsTo GraphInputPlaceholder `json:"maps_to"`
}

// OutputPortSpec declares a cluster output and the internal port behind it.
type OutputPortSpec struct {
	Name   string  `json:"name"`
	MapsTo PortRef `json:"maps_to"`
}

// ParameterSpec declares a cluster or primitive parameter.
type ParameterSpec struct {
	Name     string
	Type     ParameterType
	Default  ParameterValue // nil when absent
	Required bool
}

type parameterSpecWire struct {
	Name     string          `json:"name"`
	Type     ParameterType   `json:"type"`
	Default  json.RawMessage `json:"default,omitempty"`
	Required bool            `json:"required"`
}

// MarshalJSON implements json.Marshaler.
func (p ParameterSpec) MarshalJSON() ([]byte, error) {
	w := parameterSpecWire{Name: p.Name, Type: p.Type, Required: p.Required}
	if p.Default != nil {
		raw, err := MarshalParameterValue(p.Default)
		if err != nil {
			return nil, fmt.Errorf("parameter %q default: %w", p.Name, err)
		}
		w.Default = raw
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *ParameterSpec) UnmarshalJSON(data []byte) error {
	var w parameterSpecWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = ParameterSpec{Name: w.Name, Type: w.Type, Required: w.Required}
	if len(w.Default) > 0 && string(w.Default) != "null" {
		v, err := UnmarshalParameterValue(w.Default)
		if err != nil {
			return fmt.Errorf("parameter %q default: %w", w.Name, err)
		}
		p.Default = v
	}
	return nil
}

// ClusterKey identifies a published cluster version.
type ClusterKey struct {
	ID      string
	Version string
}

func (k ClusterKey) String() string { return k.ID + "@" + k.Version }

// ClusterDefinition is a reusable, versioned subgraph. A published version
// is never mutated; a change is a new version.
type ClusterDefinition struct {
	ID                string                  `json:"id"`
	Version           string                  `json:"version"`
	Nodes             map[string]NodeInstance `json:"nodes"`
	Edges             []Edge                  `json:"edges"`
	InputPorts        []InputPortSpec         `json:"input_ports"`
	OutputPorts       []OutputPortSpec        `json:"output_ports"`
	Parameters        []ParameterSpec         `json:"parameters"`
	DeclaredSignature *Signature              `json:"declared_signature,omitempty"`
}

// Key returns the (id, version) identity of the definition.
func (d *ClusterDefinition) Key() ClusterKey {
	return ClusterKey{ID: d.ID, Version: d.Version}
}

// SortedNodeIDs returns node ids in lexical order.
func (d *ClusterDefinition) SortedNodeIDs() []string {
	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Placeholder returns the input port whose placeholder is named name.
func (d *ClusterDefinition) Placeholder(name string) (InputPortSpec, bool) {
	for _, in := range d.InputPorts {
		if in.MapsTo.Name == name {
			return in, true
		}
	}
	return InputPortSpec{}, false
}

// InputPort returns the input port named name.
func (d *ClusterDefinition) InputPort(name string) (InputPortSpec, bool) {
	for _, in := range d.InputPorts {
		if in.Name == name {
			return in, true
		}
	}
	return InputPortSpec{}, false
}

// OutputPort returns the output port named name.
func (d *ClusterDefinition) OutputPort(name string) (OutputPortSpec, bool) {
	for _, out := range d.OutputPorts {
		if out.Name == name {
			return out, true
		}
	}
	return OutputPortSpec{}, false
}

// Parameter returns the parameter spec named name.
func (d *ClusterDefinition) Parameter(name string) (ParameterSpec, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return ParameterSpec{}, false
}
