package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/ir"
)

// Snapshot is the golden form of a scenario run: what it produced, not
// whether it passed.
type Snapshot struct {
	Scenario string        `json:"scenario"`
	Codes    []string      `json:"codes,omitempty"`
	Outputs  ir.Values     `json:"outputs,omitempty"`
	Trace    []engine.Step `json:"trace"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(r *Result) Snapshot {
	s := Snapshot{
		Scenario: r.Scenario,
		Codes:    r.Codes,
		Trace:    []engine.Step{},
	}
	if r.Report != nil {
		s.Outputs = r.Report.Outputs
		s.Trace = r.Report.Steps
	}
	return s
}

// MarshalSnapshot encodes the snapshot of r as indented JSON with a
// trailing newline. Map keys are sorted, so equal runs encode equally.
func MarshalSnapshot(r *Result) ([]byte, error) {
	data, err := json.MarshalIndent(NewSnapshot(r), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass. Returns an error if
// the scenario cannot be run.
func RunWithGolden(t *testing.T, h *Harness, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := h.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, result.Scenario, data)
	return nil
}
