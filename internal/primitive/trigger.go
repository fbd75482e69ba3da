package primitive

import "github.com/roach88/ergo/internal/ir"

// EmitIfTrue emits when its Bool input is true.
type EmitIfTrue struct{ manifest *ir.Manifest }

// NewEmitIfTrue returns emit_if_true.
func NewEmitIfTrue() *EmitIfTrue {
	return &EmitIfTrue{manifest: triggerManifest("emit_if_true",
		[]ir.InputSpec{input("input", ir.TypeBool, true)},
		"event",
	)}
}

func (t *EmitIfTrue) Manifest() *ir.Manifest { return t.manifest }

func (t *EmitIfTrue) Evaluate(inputs ir.Values, _ ir.Parameters) (ir.Values, error) {
	ok, err := Bool(inputs, "input")
	if err != nil {
		return nil, err
	}
	event := ir.NotEmitted
	if ok {
		event = ir.Emitted
	}
	return ir.Values{"event": ir.TriggerValue(event)}, nil
}
