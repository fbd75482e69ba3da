package primitive

import (
	"context"

	"github.com/roach88/ergo/internal/ir"
)

// AckAction acknowledges its event. It reports Filled when accept is true
// and Rejected otherwise.
type AckAction struct{ manifest *ir.Manifest }

// NewAckAction returns ack_action.
func NewAckAction() *AckAction {
	return &AckAction{manifest: ActionManifest("ack_action", CoreVersion,
		param("accept", ir.ParamBool, ir.BoolValue(true)),
	)}
}

func (a *AckAction) Manifest() *ir.Manifest { return a.manifest }

func (a *AckAction) Execute(_ context.Context, inputs ir.Values, params ir.Parameters) (ir.Values, error) {
	if _, err := Event(inputs, "event"); err != nil {
		return nil, err
	}
	accept := true
	if _, ok := params["accept"]; ok {
		v, err := BoolParam(params, "accept")
		if err != nil {
			return nil, err
		}
		accept = v
	}
	outcome := ir.OutcomeRejected
	if accept {
		outcome = ir.OutcomeFilled
	}
	return ir.Values{"outcome": ir.OutcomeValue(outcome)}, nil
}

// AnnotateAction records a note and always reports Attempted.
type AnnotateAction struct {
	manifest *ir.Manifest
	sink     func(note string)
}

// NewAnnotateAction returns annotate_action. Notes go to sink when it is
// non-nil.
func NewAnnotateAction(sink func(note string)) *AnnotateAction {
	return &AnnotateAction{
		manifest: ActionManifest("annotate_action", CoreVersion,
			param("note", ir.ParamString, ir.StringParam("")),
		),
		sink: sink,
	}
}

func (a *AnnotateAction) Manifest() *ir.Manifest { return a.manifest }

func (a *AnnotateAction) Execute(_ context.Context, inputs ir.Values, params ir.Parameters) (ir.Values, error) {
	if _, err := Event(inputs, "event"); err != nil {
		return nil, err
	}
	note, err := StringParam(params, "note")
	if err != nil {
		return nil, err
	}
	if a.sink != nil {
		a.sink(note)
	}
	return ir.Values{"outcome": ir.OutcomeValue(ir.OutcomeAttempted)}, nil
}
