package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/testutil"
)

const gatesCUE = `
package test

cluster: threshold_gate: {
	version: "1.0.0"
	inputs: signal: {type: "Number", required: true}
	parameters: threshold: {type: "Number", default: 0}
	nodes: {
		limit: {impl: "number_source", params: value: {exposed: "threshold"}}
		cmp: {impl: "gt"}
		trig: {impl: "emit_if_true"}
	}
	edges: [
		{from: "signal.signal", to: "cmp.a"},
		{from: "limit.value", to: "cmp.b"},
		{from: "cmp.result", to: "trig.input"},
	]
	outputs: event: "trig.event"
}

cluster: strategy: {
	version: "1.0.0"
	parameters: price: {type: "Number", default: 5}
	nodes: {
		price: {impl: "number_source", params: value: {exposed: "price"}}
		cost: {impl: "number_source", params: value: 1.0}
		margin: {impl: "subtract"}
		gate: {cluster: "threshold_gate", version: "1.0.0", params: threshold: 3.0}
		act: {impl: "ack_action"}
	}
	edges: [
		{from: "price.value", to: "margin.a"},
		{from: "cost.value", to: "margin.b"},
		{from: "margin.result", to: "gate.signal"},
		{from: "gate.event", to: "act.event"},
	]
	outputs: outcome: "act.outcome"
}
`

const helloYAML = `
clusters:
  - id: hello_world
    version: "1.0.0"
    nodes:
      a: {impl: number_source, params: {value: 3.0}}
      b: {impl: number_source, params: {value: 1.0}}
      cmp: {impl: gt}
      trig: {impl: emit_if_true}
      act: {impl: ack_action, params: {accept: true}}
    edges:
      - {from: a.value, to: cmp.a}
      - {from: b.value, to: cmp.b}
      - {from: cmp.result, to: trig.input}
      - {from: trig.event, to: act.event}
    outputs:
      - {name: action_outcome, from: act.outcome}
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadCUEString(t *testing.T) {
	defs, err := LoadCUEString(gatesCUE)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	assert.Equal(t, testutil.ThresholdGate(), defs[0])
	assert.Equal(t, testutil.Strategy(), defs[1])
}

func TestParseYAML(t *testing.T) {
	defs, err := ParseYAML([]byte(helloYAML))
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, testutil.HelloWorld(), defs[0])
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "clusters:\n  - id: x\n    version: \"1\"\n    colour: red\n"},
		{"missing version", "clusters:\n  - id: x\n"},
		{"bad port ref", "clusters:\n  - id: x\n    version: \"1\"\n    edges:\n      - {from: a, to: b.c}\n"},
		{"impl and cluster", "clusters:\n  - id: x\n    version: \"1\"\n    nodes:\n      n: {impl: gt, cluster: y, version: \"1\"}\n"},
		{"cluster without version", "clusters:\n  - id: x\n    version: \"1\"\n    nodes:\n      n: {cluster: y}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestYAMLBindingsAndSignature(t *testing.T) {
	src := `
clusters:
  - id: feed
    version: "2.0.0"
    parameters:
      - {name: level, type: Int, default: 2}
      - {name: mode, type: Enum, default: fast}
    inputs:
      - {name: x, type: Number, placeholder: x_in}
    nodes:
      src: {impl: number_source, params: {value: {exposed: level}}}
    outputs:
      - {name: out, from: src.value}
    signature:
      kind: SourceLike
      inputs: []
      outputs:
        - {name: out, type: Number, cardinality: Single, wireable: true}
      has_side_effects: false
      is_origin: true
`
	defs, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	d := defs[0]

	assert.Equal(t, ir.IntValue(2), d.Parameters[0].Default)
	assert.Equal(t, ir.EnumValue("fast"), d.Parameters[1].Default)
	assert.Equal(t, "x_in", d.InputPorts[0].MapsTo.Name)
	assert.Equal(t, ir.Exposed("level"), d.Nodes["src"].Bindings["value"])
	require.NotNil(t, d.DeclaredSignature)
	assert.Equal(t, ir.SourceLike, d.DeclaredSignature.Kind)
	assert.True(t, d.DeclaredSignature.Outputs[0].Wireable)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "gates.cue", gatesCUE)
	writeFile(t, dir, "hello.yaml", helloYAML)
	writeFile(t, dir, "notes.txt", "ignored")

	lib, err := LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, []ir.ClusterKey{
		{ID: "hello_world", Version: "1.0.0"},
		{ID: "strategy", Version: "1.0.0"},
		{ID: "threshold_gate", Version: "1.0.0"},
	}, lib.Keys())

	d, ok := lib.Load("strategy", "1.0.0")
	require.True(t, ok)
	assert.Equal(t, testutil.Strategy(), d)

	_, ok = lib.Load("strategy", "9.9.9")
	assert.False(t, ok)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		assert.Error(t, err)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		assert.Error(t, err)
	})
	t.Run("bad cue", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.cue", "package test\n\ncluster: broken: {nodes: {}}\n")
		_, err := LoadDir(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "version")
	})
}

func TestAddIsImmutable(t *testing.T) {
	lib, err := New(testutil.HelloWorld())
	require.NoError(t, err)

	assert.NoError(t, lib.Add(testutil.HelloWorld()))

	changed := testutil.HelloWorld()
	changed.Nodes["a"] = testutil.Node("a", "number_source",
		map[string]ir.ParameterBinding{"value": ir.Literal(ir.NumberValue(42))})
	assert.ErrorIs(t, lib.Add(changed), ErrConflict)
	assert.Equal(t, 1, lib.Len())

	bumped := testutil.HelloWorld()
	bumped.Version = "1.1.0"
	require.NoError(t, lib.Add(bumped))
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, lib.Versions("hello_world"))
}
