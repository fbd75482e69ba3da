package primitive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
)

type mapEnv map[string]ir.Value

func (m mapEnv) Lookup(key string) (ir.Value, bool) {
	v, ok := m[key]
	return v, ok
}

func TestComputePrimitives(t *testing.T) {
	tests := []struct {
		name   string
		prim   *Func
		inputs ir.Values
		params ir.Parameters
		want   ir.Values
	}{
		{"add", NewAdd(), ir.Values{"a": ir.Number(2), "b": ir.Number(3)}, nil, ir.Values{"result": ir.Number(5)}},
		{"subtract", NewSubtract(), ir.Values{"a": ir.Number(2), "b": ir.Number(3)}, nil, ir.Values{"result": ir.Number(-1)}},
		{"multiply", NewMultiply(), ir.Values{"a": ir.Number(2), "b": ir.Number(3)}, nil, ir.Values{"result": ir.Number(6)}},
		{"divide", NewDivide(), ir.Values{"a": ir.Number(3), "b": ir.Number(2)}, nil, ir.Values{"result": ir.Number(1.5)}},
		{"negate", NewNegate(), ir.Values{"value": ir.Number(4)}, nil, ir.Values{"result": ir.Number(-4)}},
		{"gt", NewGt(), ir.Values{"a": ir.Number(3), "b": ir.Number(1)}, nil, ir.Values{"result": ir.Bool(true)}},
		{"lt", NewLt(), ir.Values{"a": ir.Number(3), "b": ir.Number(1)}, nil, ir.Values{"result": ir.Bool(false)}},
		{"eq", NewEq(), ir.Values{"a": ir.Number(1), "b": ir.Number(1)}, nil, ir.Values{"result": ir.Bool(true)}},
		{"neq", NewNeq(), ir.Values{"a": ir.Number(1), "b": ir.Number(1)}, nil, ir.Values{"result": ir.Bool(false)}},
		{"and", NewAnd(), ir.Values{"a": ir.Bool(true), "b": ir.Bool(false)}, nil, ir.Values{"result": ir.Bool(false)}},
		{"or", NewOr(), ir.Values{"a": ir.Bool(true), "b": ir.Bool(false)}, nil, ir.Values{"result": ir.Bool(true)}},
		{"not", NewNot(), ir.Values{"value": ir.Bool(true)}, nil, ir.Values{"result": ir.Bool(false)}},
		{
			"select false branch", NewSelect(),
			ir.Values{"cond": ir.Bool(false), "when_true": ir.Number(1), "when_false": ir.Number(2)},
			nil, ir.Values{"result": ir.Number(2)},
		},
		{"const_number", NewConstNumber(), ir.Values{}, ir.Parameters{"value": ir.IntValue(7)}, ir.Values{"value": ir.Number(7)}},
		{"const_bool", NewConstBool(), ir.Values{}, ir.Parameters{"value": ir.BoolValue(true)}, ir.Values{"value": ir.Bool(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.prim.Compute(tt.inputs, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeInputErrors(t *testing.T) {
	_, err := NewAdd().Compute(ir.Values{"a": ir.Number(1)}, nil)
	var missing *MissingError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "b", missing.Name)

	_, err = NewAdd().Compute(ir.Values{"a": ir.Bool(true), "b": ir.Number(1)}, nil)
	var coercion *CoercionError
	require.True(t, errors.As(err, &coercion))
	assert.Equal(t, "Number", coercion.Expected)

	_, err = NewConstNumber().Compute(ir.Values{}, ir.Parameters{})
	require.True(t, errors.As(err, &missing))
	assert.True(t, missing.Parameter)
}

func TestNumberSource(t *testing.T) {
	src := NewNumberSource()

	got, err := src.Produce(mapEnv{}, ir.Parameters{"value": ir.NumberValue(3)})
	require.NoError(t, err)
	assert.Equal(t, ir.Values{"value": ir.Number(3)}, got)

	env := mapEnv{"price": ir.Number(42)}
	got, err = src.Produce(env, ir.Parameters{"value": ir.NumberValue(3), "key": ir.StringParam("price")})
	require.NoError(t, err)
	assert.Equal(t, ir.Values{"value": ir.Number(42)}, got)

	got, err = src.Produce(env, ir.Parameters{"value": ir.NumberValue(3), "key": ir.StringParam("absent")})
	require.NoError(t, err)
	assert.Equal(t, ir.Values{"value": ir.Number(3)}, got)

	_, err = src.Produce(mapEnv{"price": ir.Bool(true)}, ir.Parameters{"key": ir.StringParam("price")})
	var coercion *CoercionError
	assert.True(t, errors.As(err, &coercion))
}

func TestBooleanSource(t *testing.T) {
	got, err := NewBooleanSource().Produce(nil, ir.Parameters{"value": ir.BoolValue(true)})
	require.NoError(t, err)
	assert.Equal(t, ir.Values{"value": ir.Bool(true)}, got)
}

func TestEmitIfTrue(t *testing.T) {
	trig := NewEmitIfTrue()

	got, err := trig.Evaluate(ir.Values{"input": ir.Bool(true)}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.TriggerValue(ir.Emitted), got["event"])

	got, err = trig.Evaluate(ir.Values{"input": ir.Bool(false)}, nil)
	require.NoError(t, err)
	assert.Equal(t, ir.TriggerValue(ir.NotEmitted), got["event"])

	_, err = trig.Evaluate(ir.Values{}, nil)
	assert.Error(t, err)
}

func TestAckAction(t *testing.T) {
	ctx := context.Background()
	event := ir.Values{"event": ir.TriggerValue(ir.Emitted)}

	got, err := NewAckAction().Execute(ctx, event, ir.Parameters{"accept": ir.BoolValue(true)})
	require.NoError(t, err)
	assert.Equal(t, ir.OutcomeValue(ir.OutcomeFilled), got["outcome"])

	got, err = NewAckAction().Execute(ctx, event, ir.Parameters{"accept": ir.BoolValue(false)})
	require.NoError(t, err)
	assert.Equal(t, ir.OutcomeValue(ir.OutcomeRejected), got["outcome"])

	_, err = NewAckAction().Execute(ctx, ir.Values{"event": ir.Number(1)}, nil)
	assert.Error(t, err)
}

func TestAnnotateActionSink(t *testing.T) {
	var notes []string
	act := NewAnnotateAction(func(note string) { notes = append(notes, note) })

	got, err := act.Execute(context.Background(), ir.Values{"event": ir.TriggerValue(ir.Emitted)}, ir.Parameters{"note": ir.StringParam("hi")})
	require.NoError(t, err)
	assert.Equal(t, ir.OutcomeValue(ir.OutcomeAttempted), got["outcome"])
	assert.Equal(t, []string{"hi"}, notes)
}

func TestCoreRegistries(t *testing.T) {
	reg := Core()
	manifests := reg.Manifests()
	require.Len(t, manifests, 20)
	assert.Equal(t, "ack_action", manifests[0].ID)

	_, ok := reg.Source(ir.ImplementationInstance{ImplID: "number_source", Version: CoreVersion})
	assert.True(t, ok)
	_, ok = reg.Action(ir.ImplementationInstance{ImplID: "ack_action", Version: CoreVersion})
	assert.True(t, ok)
	_, ok = reg.Compute(ir.ImplementationInstance{ImplID: "ack_action", Version: CoreVersion})
	assert.False(t, ok)
}

func TestRegisterRejectsDuplicatesAndKindMismatch(t *testing.T) {
	reg := NewRegistries()
	require.NoError(t, reg.Register(NewGt()))
	assert.Error(t, reg.Register(NewGt()))

	lying := &Func{manifest: ActionManifest("liar", "1.0.0"), fn: nil}
	assert.Error(t, reg.Register(lying))
}
