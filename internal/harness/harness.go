package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/library"
	"github.com/roach88/ergo/internal/logging"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/primitive"
	"github.com/roach88/ergo/internal/testutil"
)

// Harness runs scenarios. Each scenario gets a fresh pipeline with a fixed
// run id and no signature cache, so nothing carries over between runs.
type Harness struct {
	registries *primitive.Registries
	lib        *library.Library
	logger     *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLibrary sets the library used by scenarios that name no clusters
// directory.
func WithLibrary(lib *library.Library) Option {
	return func(h *Harness) {
		h.lib = lib
	}
}

// WithRegistries sets the primitive implementations. Default:
// primitive.Core().
func WithRegistries(r *primitive.Registries) Option {
	return func(h *Harness) {
		h.registries = r
	}
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	if h.registries == nil {
		h.registries = primitive.Core()
	}
	return h
}

// Run executes a scenario and returns the result.
//
// A run that fails the way the scenario expects is a pass. The returned
// error is reserved for scenarios that cannot be run at all: a missing
// clusters directory, unreadable parameters or context.
//
// Execution flow:
// 1. Build a pipeline over the scenario's library
// 2. Check the cluster's definition and nested instances
// 3. Expand the cluster with the scenario's parameters
// 4. Validate the expanded graph
// 5. Run it once against the scenario's context
// 6. Compare against Expect and evaluate assertions
func (h *Harness) Run(ctx context.Context, s *Scenario) (*Result, error) {
	lib, err := h.library(s)
	if err != nil {
		return nil, err
	}
	params, err := scenarioParameters(s.Params)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	execCtx := engine.NewContext()
	if s.Context != nil {
		execCtx, err = engine.DecodeContext(s.Context)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
	}

	runID := s.RunID
	if runID == "" {
		runID = DefaultRunID
	}
	p, err := pipeline.New(lib, h.registries,
		pipeline.WithoutCache(),
		pipeline.WithLogger(h.logger),
		pipeline.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(runID)),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	result := NewResult(s.Name)
	var message string
	if errs, err := p.Check(ctx, s.Key()); err == nil && len(errs) > 0 {
		for _, e := range errs {
			result.addCode(e.Code)
			if kind := e.Kind(); kind != "" {
				result.addCode(string(kind))
			}
		}
		message = (&pipeline.RejectedError{Cluster: s.Key(), Errors: errs}).Error()
		return h.finish(s, result, message), nil
	}

	g, err := p.Expand(s.Key(), params)
	switch {
	case err != nil:
		code, ok := codeOf(err)
		if !ok {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		result.Codes = append(result.Codes, code)
		message = err.Error()
	default:
		if v := p.ValidateGraph(g); !v.Success {
			for _, e := range v.Errors {
				result.addCode(string(e.Kind))
			}
			message = v.Err().Error()
			break
		}
		rep, err := p.RunGraph(ctx, g, execCtx)
		if err != nil {
			code, ok := codeOf(err)
			if !ok {
				return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
			}
			result.Codes = append(result.Codes, code)
			message = err.Error()
			break
		}
		result.Report = rep
	}
	return h.finish(s, result, message), nil
}

// finish checks the run against the scenario and logs the outcome.
func (h *Harness) finish(s *Scenario, result *Result, message string) *Result {
	checkExpect(s, result, message)
	for _, msg := range EvaluateAssertions(result.Steps(), s.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario complete",
		"scenario", s.Name,
		"cluster", s.Key().String(),
		"pass", result.Pass,
		"codes", strings.Join(result.Codes, ","),
	)
	return result
}

func (h *Harness) library(s *Scenario) (*library.Library, error) {
	if s.Clusters != "" {
		lib, err := library.LoadDir(s.Clusters)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		return lib, nil
	}
	if h.lib == nil {
		return nil, fmt.Errorf("scenario %s: no clusters directory and no library configured", s.Name)
	}
	return h.lib, nil
}

// checkExpect compares the run against the scenario's Expect clause.
func checkExpect(s *Scenario, r *Result, message string) {
	switch {
	case s.Expect.Error != "":
		if len(r.Codes) == 0 {
			r.AddError(fmt.Sprintf("expected error %s, run succeeded", s.Expect.Error))
		} else if !r.hasCode(s.Expect.Error) {
			r.AddError(fmt.Sprintf("expected error %s, got %s", s.Expect.Error, message))
		}
	case len(r.Codes) > 0:
		r.AddError(fmt.Sprintf("unexpected error: %s", message))
	default:
		outputs := r.Outputs()
		names := make([]string, 0, len(s.Expect.Outputs))
		for name := range s.Expect.Outputs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			want := s.Expect.Outputs[name]
			got, ok := outputs[name]
			if !ok {
				r.AddError(fmt.Sprintf("output %q: missing, want %v", name, want))
				continue
			}
			if !matchValue(got, want) {
				r.AddError(fmt.Sprintf("output %q: got %s, want %v", name, formatValue(got), want))
			}
		}
	}
}

// codeOf returns the code a pipeline error reports, if it has one.
func codeOf(err error) (string, bool) {
	var xe *expand.Error
	if errors.As(err, &xe) {
		return string(xe.Code), true
	}
	var ee *engine.ExecutionError
	if errors.As(err, &ee) {
		return string(ee.Kind), true
	}
	var ie *engine.InvalidGraphError
	if errors.As(err, &ie) && len(ie.Result.Errors) > 0 {
		return string(ie.Result.Errors[0].Kind), true
	}
	return "", false
}

// scenarioParameters converts YAML-parsed parameter values. Integers stay
// Int; the pipeline widens them where a Number is declared.
func scenarioParameters(raw map[string]any) (ir.Parameters, error) {
	params := make(ir.Parameters, len(raw))
	for name, val := range raw {
		switch v := val.(type) {
		case int:
			params[name] = ir.IntValue(int64(v))
		case float64:
			params[name] = ir.NumberValue(v)
		case bool:
			params[name] = ir.BoolValue(v)
		case string:
			params[name] = ir.StringParam(v)
		case nil:
			return nil, fmt.Errorf("parameter %q: null is not a value", name)
		default:
			return nil, fmt.Errorf("parameter %q: unsupported type %T", name, val)
		}
	}
	return params, nil
}

// matchValue compares a runtime value against a YAML-parsed expectation.
func matchValue(v ir.Value, want any) bool {
	switch val := v.(type) {
	case ir.OutcomeValue:
		s, ok := want.(string)
		return ok && s == string(val)
	case ir.TriggerValue:
		s, ok := want.(string)
		return ok && s == string(val)
	case ir.String:
		s, ok := want.(string)
		return ok && s == string(val)
	case ir.Bool:
		b, ok := want.(bool)
		return ok && b == bool(val)
	case ir.Number:
		f, ok := toFloat(want)
		return ok && f == float64(val)
	case ir.Series:
		items, ok := want.([]any)
		if !ok || len(items) != len(val) {
			return false
		}
		for i, item := range items {
			f, ok := toFloat(item)
			if !ok || f != val[i] {
				return false
			}
		}
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// formatValue renders a runtime value the way scenarios write it.
func formatValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.OutcomeValue:
		return string(val)
	case ir.TriggerValue:
		return string(val)
	case ir.String:
		return fmt.Sprintf("%q", string(val))
	case ir.Series:
		return fmt.Sprint([]float64(val))
	}
	return fmt.Sprint(v)
}
