package harness

import (
	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/ir"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Scenario is the name of the scenario that produced this result.
	Scenario string `json:"scenario"`

	// Pass indicates overall success: the run matched Expect and every
	// assertion held.
	Pass bool `json:"pass"`

	// Codes are the error codes the run stopped with, in the order they
	// were reported. Empty when the run succeeded.
	Codes []string `json:"codes,omitempty"`

	// Report is the engine report. Nil when the run failed.
	Report *engine.Report `json:"report,omitempty"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Codes:    []string{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Steps returns the evaluation trace, or nil when the run failed.
func (r *Result) Steps() []engine.Step {
	if r.Report == nil {
		return nil
	}
	return r.Report.Steps
}

// Outputs returns the boundary outputs, or nil when the run failed.
func (r *Result) Outputs() ir.Values {
	if r.Report == nil {
		return nil
	}
	return r.Report.Outputs
}

// hasCode reports whether the run stopped with code.
func (r *Result) hasCode(code string) bool {
	for _, c := range r.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// addCode records code once.
func (r *Result) addCode(code string) {
	if !r.hasCode(code) {
		r.Codes = append(r.Codes, code)
	}
}
