package library

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/primitive"
)

// fileDoc is the top level of a YAML cluster file.
type fileDoc struct {
	Clusters []clusterDoc `mapstructure:"clusters"`
}

type clusterDoc struct {
	ID         string             `mapstructure:"id"`
	Version    string             `mapstructure:"version"`
	Parameters []parameterDoc     `mapstructure:"parameters"`
	Inputs     []inputDoc         `mapstructure:"inputs"`
	Nodes      map[string]nodeDoc `mapstructure:"nodes"`
	Edges      []edgeDoc          `mapstructure:"edges"`
	Outputs    []outputDoc        `mapstructure:"outputs"`
	Signature  map[string]any     `mapstructure:"signature"`
}

type parameterDoc struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Default  any    `mapstructure:"default"`
	Required bool   `mapstructure:"required"`
}

type inputDoc struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Placeholder string `mapstructure:"placeholder"`
	Required    bool   `mapstructure:"required"`
}

type nodeDoc struct {
	Impl    string         `mapstructure:"impl"`
	Cluster string         `mapstructure:"cluster"`
	Version string         `mapstructure:"version"`
	Params  map[string]any `mapstructure:"params"`
}

type edgeDoc struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

type outputDoc struct {
	Name string `mapstructure:"name"`
	From string `mapstructure:"from"`
}

// LoadYAMLFile reads cluster definitions from a YAML file with a top-level
// "clusters" list.
func LoadYAMLFile(path string) ([]*ir.ClusterDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defs, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// ParseYAML decodes cluster definitions from YAML.
func ParseYAML(data []byte) ([]*ir.ClusterDefinition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	var doc fileDoc
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode clusters: %w", err)
	}

	defs := make([]*ir.ClusterDefinition, 0, len(doc.Clusters))
	for i, c := range doc.Clusters {
		def, err := c.definition()
		if err != nil {
			return nil, fmt.Errorf("clusters[%d] (%s): %w", i, c.ID, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (c clusterDoc) definition() (*ir.ClusterDefinition, error) {
	if c.ID == "" || c.Version == "" {
		return nil, fmt.Errorf("id and version are required")
	}
	def := &ir.ClusterDefinition{
		ID:          c.ID,
		Version:     c.Version,
		Nodes:       make(map[string]ir.NodeInstance, len(c.Nodes)),
		Edges:       []ir.Edge{},
		InputPorts:  []ir.InputPortSpec{},
		OutputPorts: []ir.OutputPortSpec{},
		Parameters:  []ir.ParameterSpec{},
	}

	for _, p := range c.Parameters {
		spec := ir.ParameterSpec{Name: p.Name, Type: ir.ParameterType(p.Type), Required: p.Required}
		if p.Default != nil {
			v, err := literal(p.Default, spec.Type)
			if err != nil {
				return nil, fmt.Errorf("parameter %q default: %w", p.Name, err)
			}
			spec.Default = v
		}
		def.Parameters = append(def.Parameters, spec)
	}

	for _, in := range c.Inputs {
		name := in.Placeholder
		if name == "" {
			name = in.Name
		}
		def.InputPorts = append(def.InputPorts, ir.InputPortSpec{
			Name:   in.Name,
			MapsTo: ir.GraphInputPlaceholder{Name: name, Type: ir.ValueType(in.Type), Required: in.Required},
		})
	}

	for id, n := range c.Nodes {
		inst, err := n.instance(id)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		def.Nodes[id] = inst
	}

	for i, e := range c.Edges {
		from, err := portRef(e.From)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].from: %w", i, err)
		}
		to, err := portRef(e.To)
		if err != nil {
			return nil, fmt.Errorf("edges[%d].to: %w", i, err)
		}
		def.Edges = append(def.Edges, ir.Edge{From: from, To: to})
	}

	for _, out := range c.Outputs {
		ref, err := portRef(out.From)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		def.OutputPorts = append(def.OutputPorts, ir.OutputPortSpec{Name: out.Name, MapsTo: ref})
	}

	if c.Signature != nil {
		data, err := json.Marshal(c.Signature)
		if err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
		sig := &ir.Signature{Inputs: []ir.PortSpec{}, Outputs: []ir.PortSpec{}}
		if err := json.Unmarshal(data, sig); err != nil {
			return nil, fmt.Errorf("signature: %w", err)
		}
		def.DeclaredSignature = sig
	}
	return def, nil
}

func (n nodeDoc) instance(id string) (ir.NodeInstance, error) {
	var kind ir.NodeKind
	switch {
	case n.Impl != "" && n.Cluster != "":
		return ir.NodeInstance{}, fmt.Errorf("node sets both impl and cluster")
	case n.Impl != "":
		version := n.Version
		if version == "" {
			version = primitive.CoreVersion
		}
		kind = ir.Impl(n.Impl, version)
	case n.Cluster != "":
		if n.Version == "" {
			return ir.NodeInstance{}, fmt.Errorf("cluster node needs a version")
		}
		kind = ir.ClusterRef(n.Cluster, n.Version)
	default:
		return ir.NodeInstance{}, fmt.Errorf("node needs impl or cluster")
	}

	bindings := make(map[string]ir.ParameterBinding, len(n.Params))
	for name, raw := range n.Params {
		if m, ok := raw.(map[string]any); ok {
			if parent, ok := m["exposed"].(string); ok {
				bindings[name] = ir.Exposed(parent)
				continue
			}
		}
		v, err := literal(raw, "")
		if err != nil {
			return ir.NodeInstance{}, fmt.Errorf("parameter %q: %w", name, err)
		}
		bindings[name] = ir.Literal(v)
	}
	return ir.NodeInstance{ID: id, Kind: kind, Bindings: bindings}, nil
}

// literal converts a decoded YAML scalar to a ParameterValue. When want is
// set, numbers and strings are converted to that type.
func literal(raw any, want ir.ParameterType) (ir.ParameterValue, error) {
	switch v := raw.(type) {
	case bool:
		return ir.BoolValue(v), nil
	case int:
		if want == ir.ParamNumber {
			return ir.NumberValue(float64(v)), nil
		}
		return ir.IntValue(int64(v)), nil
	case float64:
		return ir.NumberValue(v), nil
	case string:
		if want == ir.ParamEnum {
			return ir.EnumValue(v), nil
		}
		return ir.StringParam(v), nil
	case map[string]any:
		if e, ok := v["enum"].(string); ok {
			return ir.EnumValue(e), nil
		}
	}
	return nil, fmt.Errorf("unsupported literal %v (%T)", raw, raw)
}

func portRef(s string) (ir.PortRef, error) {
	node, port, ok := strings.Cut(s, ".")
	if !ok || node == "" || port == "" {
		return ir.PortRef{}, fmt.Errorf("port reference %q must be node.port", s)
	}
	return ir.PortRef{NodeID: node, PortName: port}, nil
}
