// Package testutil provides cluster fixtures and deterministic helpers
// shared by package tests.
package testutil

import (
	"github.com/roach88/ergo/internal/ir"
)

const v = "0.1.0"

// MapLoader is an in-memory cluster loader.
type MapLoader map[ir.ClusterKey]*ir.ClusterDefinition

// NewLoader indexes defs by (id, version).
func NewLoader(defs ...*ir.ClusterDefinition) MapLoader {
	l := MapLoader{}
	for _, d := range defs {
		l[d.Key()] = d
	}
	return l
}

// Load implements expand.Loader.
func (l MapLoader) Load(id, version string) (*ir.ClusterDefinition, bool) {
	d, ok := l[ir.ClusterKey{ID: id, Version: version}]
	return d, ok
}

// Node builds an Impl node instance.
func Node(id, implID string, bindings map[string]ir.ParameterBinding) ir.NodeInstance {
	if bindings == nil {
		bindings = map[string]ir.ParameterBinding{}
	}
	return ir.NodeInstance{ID: id, Kind: ir.Impl(implID, v), Bindings: bindings}
}

// Instance builds a nested cluster node instance.
func Instance(id, clusterID, version string, bindings map[string]ir.ParameterBinding) ir.NodeInstance {
	if bindings == nil {
		bindings = map[string]ir.ParameterBinding{}
	}
	return ir.NodeInstance{ID: id, Kind: ir.ClusterRef(clusterID, version), Bindings: bindings}
}

// Wire builds an edge from "node.port" pairs.
func Wire(fromNode, fromPort, toNode, toPort string) ir.Edge {
	return ir.Edge{
		From: ir.PortRef{NodeID: fromNode, PortName: fromPort},
		To:   ir.PortRef{NodeID: toNode, PortName: toPort},
	}
}

// Cluster assembles a definition from its parts.
func Cluster(id, version string, nodes []ir.NodeInstance, edges []ir.Edge) *ir.ClusterDefinition {
	d := &ir.ClusterDefinition{
		ID:          id,
		Version:     version,
		Nodes:       map[string]ir.NodeInstance{},
		Edges:       edges,
		InputPorts:  []ir.InputPortSpec{},
		OutputPorts: []ir.OutputPortSpec{},
		Parameters:  []ir.ParameterSpec{},
	}
	for _, n := range nodes {
		d.Nodes[n.ID] = n
	}
	if d.Edges == nil {
		d.Edges = []ir.Edge{}
	}
	return d
}

// Output adds an output port to d and returns d.
func Output(d *ir.ClusterDefinition, name, node, port string) *ir.ClusterDefinition {
	d.OutputPorts = append(d.OutputPorts, ir.OutputPortSpec{Name: name, MapsTo: ir.PortRef{NodeID: node, PortName: port}})
	return d
}

// HelloWorld compares two number sources with gt, gates on emit_if_true and
// acknowledges with ack_action. With a=3 and b=1 the action fills.
func HelloWorld() *ir.ClusterDefinition {
	return helloWorld("hello_world", 3, 1)
}

// HelloWorldGated is HelloWorld with the source values swapped, so the
// trigger does not emit and the action is skipped.
func HelloWorldGated() *ir.ClusterDefinition {
	return helloWorld("hello_world_gated", 1, 3)
}

func helloWorld(id string, a, b float64) *ir.ClusterDefinition {
	d := Cluster(id, "1.0.0",
		[]ir.NodeInstance{
			Node("a", "number_source", map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(a))}),
			Node("b", "number_source", map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(b))}),
			Node("cmp", "gt", nil),
			Node("trig", "emit_if_true", nil),
			Node("act", "ack_action", map[string]ir.ParameterBinding{"accept": ir.Literal(ir.BoolValue(true))}),
		},
		[]ir.Edge{
			Wire("a", "value", "cmp", "a"),
			Wire("b", "value", "cmp", "b"),
			Wire("cmp", "result", "trig", "input"),
			Wire("trig", "event", "act", "event"),
		},
	)
	return Output(d, "action_outcome", "act", "outcome")
}

// ComputeIntoAction wires gt straight into ack_action, skipping the trigger.
func ComputeIntoAction() *ir.ClusterDefinition {
	d := Cluster("compute_into_action", "1.0.0",
		[]ir.NodeInstance{
			Node("a", "number_source", map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(3))}),
			Node("b", "number_source", map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(1))}),
			Node("cmp", "gt", nil),
			Node("act", "ack_action", nil),
		},
		[]ir.Edge{
			Wire("a", "value", "cmp", "a"),
			Wire("b", "value", "cmp", "b"),
			Wire("cmp", "result", "act", "event"),
		},
	)
	return Output(d, "action_outcome", "act", "outcome")
}

// ThresholdGate emits when its signal input exceeds the threshold parameter.
// It has one Number input and one wireable Event output.
func ThresholdGate() *ir.ClusterDefinition {
	d := Cluster("threshold_gate", "1.0.0",
		[]ir.NodeInstance{
			Node("limit", "number_source", map[string]ir.ParameterBinding{"value": ir.Exposed("threshold")}),
			Node("cmp", "gt", nil),
			Node("trig", "emit_if_true", nil),
		},
		[]ir.Edge{
			Wire("signal", "signal", "cmp", "a"),
			Wire("limit", "value", "cmp", "b"),
			Wire("cmp", "result", "trig", "input"),
		},
	)
	d.InputPorts = []ir.InputPortSpec{{
		Name:   "signal",
		MapsTo: ir.GraphInputPlaceholder{Name: "signal", Type: ir.TypeNumber, Required: true},
	}}
	d.Parameters = []ir.ParameterSpec{{Name: "threshold", Type: ir.ParamNumber, Default: ir.NumberValue(0)}}
	return Output(d, "event", "trig", "event")
}

// Strategy subtracts a fixed cost of 1 from a price source and feeds the
// margin through a nested ThresholdGate (threshold 3) into ack_action.
// The price parameter defaults to 5, so the action fills.
func Strategy() *ir.ClusterDefinition {
	d := Cluster("strategy", "1.0.0",
		[]ir.NodeInstance{
			Node("price", "number_source", map[string]ir.ParameterBinding{"value": ir.Exposed("price")}),
			Node("cost", "number_source", map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(1))}),
			Node("margin", "subtract", nil),
			Instance("gate", "threshold_gate", "1.0.0", map[string]ir.ParameterBinding{"threshold": ir.Literal(ir.NumberValue(3))}),
			Node("act", "ack_action", nil),
		},
		[]ir.Edge{
			Wire("price", "value", "margin", "a"),
			Wire("cost", "value", "margin", "b"),
			Wire("margin", "result", "gate", "signal"),
			Wire("gate", "event", "act", "event"),
		},
	)
	d.Parameters = []ir.ParameterSpec{{Name: "price", Type: ir.ParamNumber, Default: ir.NumberValue(5)}}
	return Output(d, "outcome", "act", "outcome")
}

// SelfReferencing instantiates itself through an intermediate cluster.
func SelfReferencing() (*ir.ClusterDefinition, *ir.ClusterDefinition) {
	outer := Cluster("loop_a", "1.0.0",
		[]ir.NodeInstance{Instance("inner", "loop_b", "1.0.0", nil)}, nil)
	inner := Cluster("loop_b", "1.0.0",
		[]ir.NodeInstance{Instance("back", "loop_a", "1.0.0", nil)}, nil)
	return outer, inner
}

// Loader returns a loader holding every fixture above.
func Loader() MapLoader {
	a, b := SelfReferencing()
	return NewLoader(HelloWorld(), HelloWorldGated(), ComputeIntoAction(), ThresholdGate(), Strategy(), a, b)
}
