package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/primitive"
	"github.com/roach88/ergo/internal/validate"
)

// Engine runs validated graphs against a fixed set of primitive
// implementations.
//
// Thread-safety: an Engine holds no per-run state and Run may be called
// from any number of goroutines.
type Engine struct {
	registries *primitive.Registries
	logger     *slog.Logger
	metrics    *Metrics
	runIDs     RunIDGenerator
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics records run metrics. Default: none.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithRunIDGenerator sets how run ids are made for runs whose context
// carries none. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// New creates an Engine over registries.
func New(registries *primitive.Registries, opts ...Option) *Engine {
	e := &Engine{
		registries: registries,
		logger:     slog.Default(),
		runIDs:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Step records one node evaluation.
type Step struct {
	Seq     int64            `json:"seq"`
	NodeID  string           `json:"node_id"`
	Impl    string           `json:"impl"`
	Kind    ir.PrimitiveKind `json:"kind"`
	Outputs ir.Values        `json:"outputs"`
}

// Report is the result of a successful run. It depends only on the graph
// and the context, so equal inputs give equal reports.
type Report struct {
	// Outputs maps each boundary output name to its value.
	Outputs ir.Values `json:"outputs"`

	// Steps lists node evaluations in evaluation order.
	Steps []Step `json:"steps"`
}

// Outcome returns the action outcome carried by output name.
func (r *Report) Outcome(name string) (ir.ActionOutcome, bool) {
	v, ok := r.Outputs[name].(ir.OutcomeValue)
	return ir.ActionOutcome(v), ok
}

// run is the state of one evaluation pass. It is discarded when Run returns.
type run struct {
	id      string
	plan    *validate.Plan
	env     *Context
	values  map[string]ir.Values
	clock   clock
	steps   []Step
	actions []string
	logger  *slog.Logger
}

// Run validates g and evaluates it once. It returns a complete report or
// a single error: an *InvalidGraphError when validation fails, an
// *ExecutionError when a node fails, or the context's error when ctx is
// done before evaluation finishes.
func (e *Engine) Run(ctx context.Context, g *ir.ExpandedGraph, cat catalog.Catalog, execCtx *Context) (*Report, error) {
	start := time.Now()

	plan, res := validate.Compile(g, cat)
	if !res.Success {
		e.logger.Warn("graph rejected", "errors", len(res.Errors))
		e.metrics.observeRun(resultInvalid, time.Since(start))
		return nil, &InvalidGraphError{Result: res}
	}
	if execCtx == nil {
		execCtx = NewContext()
	}

	id, ok := RunIDFromContext(ctx)
	if !ok {
		id = e.runIDs.Generate()
	}
	r := &run{
		id:     id,
		plan:   plan,
		env:    execCtx,
		values: make(map[string]ir.Values, len(plan.Order)),
	}
	r.logger = e.logger.With("run_id", r.id)
	r.logger.Debug("run starting", "nodes", len(plan.Order))

	for _, id := range plan.Order {
		if err := ctx.Err(); err != nil {
			e.metrics.observeRun(resultFailed, time.Since(start))
			return nil, fmt.Errorf("run %s: %w", r.id, err)
		}
		if err := e.evaluate(ctx, r, id); err != nil {
			var ee *ExecutionError
			if errors.As(err, &ee) && len(r.actions) > 0 {
				if ee.Details == nil {
					ee.Details = map[string]string{}
				}
				ee.Details["attempted_actions"] = fmt.Sprint(r.actions)
			}
			r.logger.Error("run failed", "node", id, "error", err)
			e.metrics.observeRun(resultFailed, time.Since(start))
			return nil, err
		}
	}

	outputs := make(ir.Values, len(g.BoundaryOutputs))
	for _, out := range g.BoundaryOutputs {
		v, ok := r.values[out.MapsTo.NodeID][out.MapsTo.PortName]
		if !ok {
			e.metrics.observeRun(resultFailed, time.Since(start))
			return nil, &ExecutionError{
				Kind:    ErrMissingInput,
				Message: fmt.Sprintf("boundary output %q maps to %s, which produced nothing", out.Name, out.MapsTo),
				NodeID:  out.MapsTo.NodeID,
			}
		}
		outputs[out.Name] = v
	}

	r.logger.Info("run complete", "nodes", len(r.steps), "actions", len(r.actions))
	e.metrics.observeRun(resultOK, time.Since(start))
	return &Report{Outputs: outputs, Steps: r.steps}, nil
}

// evaluate runs one node and stores its outputs.
func (e *Engine) evaluate(ctx context.Context, r *run, id string) (err error) {
	n := r.plan.Graph.Nodes[id]
	m := r.plan.Manifests[id]
	impl := n.Implementation

	defer func() {
		if p := recover(); p != nil {
			err = &ExecutionError{
				Kind:    ErrRuntimePanic,
				Message: fmt.Sprintf("%s panicked: %v", impl, p),
				NodeID:  id,
			}
		}
	}()

	params := resolveParameters(m, n.Parameters)
	inputs, err := r.gather(id, m)
	if err != nil {
		return err
	}

	var outputs ir.Values
	switch m.Kind {
	case ir.KindSource:
		s, ok := e.registries.Source(impl)
		if !ok {
			return missingImplementation(id, impl)
		}
		outputs, err = s.Produce(r.env, params)
	case ir.KindCompute:
		c, ok := e.registries.Compute(impl)
		if !ok {
			return missingImplementation(id, impl)
		}
		outputs, err = c.Compute(inputs, params)
	case ir.KindTrigger:
		t, ok := e.registries.Trigger(impl)
		if !ok {
			return missingImplementation(id, impl)
		}
		outputs, err = t.Evaluate(inputs, params)
	case ir.KindAction:
		a, ok := e.registries.Action(impl)
		if !ok {
			return missingImplementation(id, impl)
		}
		outputs, err = e.execute(ctx, r, id, a, inputs, params)
	default:
		return &ExecutionError{Kind: ErrRuntimePanic, Message: fmt.Sprintf("unknown kind %q", m.Kind), NodeID: id}
	}
	if err != nil {
		return classify(id, m, err)
	}
	if err := checkOutputs(id, m, outputs); err != nil {
		return err
	}

	r.values[id] = outputs
	r.steps = append(r.steps, Step{
		Seq:     r.clock.next(),
		NodeID:  id,
		Impl:    impl.String(),
		Kind:    m.Kind,
		Outputs: outputs,
	})
	e.metrics.observeNode(m.Kind)
	r.logger.Debug("node evaluated", "node", id, "impl", impl.String(), "kind", m.Kind)
	return nil
}

// execute gates and runs one action. An action runs only when every
// trigger feeding it emitted; otherwise it is skipped without being called.
func (e *Engine) execute(ctx context.Context, r *run, id string, a primitive.Action, inputs ir.Values, params ir.Parameters) (ir.Values, error) {
	for _, in := range r.plan.Manifests[id].Inputs {
		from, wired := r.plan.Inputs[id][in.Name]
		if !wired || r.plan.Manifests[from.NodeID].Kind != ir.KindTrigger {
			continue
		}
		if ev, ok := inputs[in.Name].(ir.TriggerValue); !ok || ir.TriggerEvent(ev) != ir.Emitted {
			r.logger.Debug("action skipped", "node", id, "trigger", from.NodeID)
			e.metrics.observeAction(ir.OutcomeSkipped)
			return ir.Values{"outcome": ir.OutcomeValue(ir.OutcomeSkipped)}, nil
		}
	}

	r.actions = append(r.actions, id)
	outputs, err := a.Execute(ctx, inputs, params)
	if err != nil {
		e.metrics.observeAction(ir.OutcomeFailed)
		return nil, &ExecutionError{
			Kind:    ErrActionFailed,
			Message: fmt.Sprintf("%s failed: %v", a.Manifest().Implementation(), err),
			NodeID:  id,
			Err:     err,
		}
	}
	outcome, _ := outputs["outcome"].(ir.OutcomeValue)
	switch ir.ActionOutcome(outcome) {
	case ir.OutcomeFailed:
		e.metrics.observeAction(ir.OutcomeFailed)
		return nil, &ExecutionError{
			Kind:    ErrActionFailed,
			Message: fmt.Sprintf("%s reported %s", a.Manifest().Implementation(), ir.OutcomeFailed),
			NodeID:  id,
		}
	case ir.OutcomeSkipped:
		return nil, &ExecutionError{
			Kind:    ErrTypeCoercionFailed,
			Message: fmt.Sprintf("%s reported %s, which only the engine may produce", a.Manifest().Implementation(), ir.OutcomeSkipped),
			NodeID:  id,
		}
	}
	e.metrics.observeAction(ir.ActionOutcome(outcome))
	r.logger.Info("action executed", "node", id, "impl", a.Manifest().Implementation().String(), "outcome", string(outcome))
	return outputs, nil
}

// gather collects the values feeding id's inputs.
func (r *run) gather(id string, m *ir.Manifest) (ir.Values, error) {
	inputs := ir.Values{}
	for _, in := range m.Inputs {
		from, wired := r.plan.Inputs[id][in.Name]
		if !wired {
			continue
		}
		v, ok := r.values[from.NodeID][from.PortName]
		if !ok {
			return nil, &ExecutionError{
				Kind:    ErrMissingInput,
				Message: fmt.Sprintf("input %q: %s produced nothing", in.Name, from),
				NodeID:  id,
			}
		}
		inputs[in.Name] = v
	}
	return inputs, nil
}

// resolveParameters fills manifest defaults for parameters the node omits.
func resolveParameters(m *ir.Manifest, set ir.Parameters) ir.Parameters {
	params := set.Clone()
	for _, p := range m.Parameters {
		if _, ok := params[p.Name]; !ok && p.Default != nil {
			params[p.Name] = p.Default
		}
	}
	return params
}

// checkOutputs requires every declared output with its declared type.
// Numbers must be finite: NaN and the infinities have no wire form.
func checkOutputs(id string, m *ir.Manifest, outputs ir.Values) error {
	for _, out := range m.Outputs {
		v, ok := outputs[out.Name]
		if !ok || v == nil {
			return &ExecutionError{
				Kind:    ErrMissingInput,
				Message: fmt.Sprintf("%s produced no %q output", m.Implementation(), out.Name),
				NodeID:  id,
			}
		}
		if v.Type() != out.Type {
			return &ExecutionError{
				Kind:    ErrTypeCoercionFailed,
				Message: fmt.Sprintf("%s output %q is %s, declared %s", m.Implementation(), out.Name, v.Type(), out.Type),
				NodeID:  id,
			}
		}
		if !ir.IsFinite(v) {
			return &ExecutionError{
				Kind:    ErrTypeCoercionFailed,
				Message: fmt.Sprintf("%s output %q is not a finite number: %v", m.Implementation(), out.Name, v),
				NodeID:  id,
			}
		}
	}
	return nil
}

// classify maps a primitive error onto an execution error kind.
func classify(id string, m *ir.Manifest, err error) error {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return err
	}
	kind := ErrRuntimePanic
	var ce *primitive.CoercionError
	var me *primitive.MissingError
	switch {
	case errors.As(err, &ce):
		kind = ErrTypeCoercionFailed
	case errors.As(err, &me):
		kind = ErrMissingInput
	}
	return &ExecutionError{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v", m.Implementation(), err),
		NodeID:  id,
		Err:     err,
	}
}

func missingImplementation(id string, impl ir.ImplementationInstance) error {
	return &ExecutionError{
		Kind:    ErrRuntimePanic,
		Message: fmt.Sprintf("no implementation registered for %s", impl),
		NodeID:  id,
		Details: map[string]string{DetailCause: CauseMissingImplementation},
	}
}
