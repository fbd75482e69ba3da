package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ergo/internal/ir"
)

// Scenario defines a conformance scenario: one run of one cluster and what
// it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clusters is a directory of cluster files. Relative paths resolve
	// against the scenario file. When empty, the harness library is used.
	Clusters string `yaml:"clusters,omitempty"`

	// Cluster and Version name the cluster under test.
	Cluster string `yaml:"cluster"`
	Version string `yaml:"version"`

	// Params bind the cluster's root parameters.
	Params map[string]any `yaml:"params,omitempty"`

	// Context is the execution context, in the form engine.DecodeContext
	// accepts.
	Context map[string]any `yaml:"context,omitempty"`

	// Expect states what the run must produce.
	Expect Expect `yaml:"expect"`

	// Assertions validate the evaluation trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// RunID is the run id the scenario's logs and run log carry. Defaults to
	// DefaultRunID.
	RunID string `yaml:"run_id,omitempty"`
}

// Expect is the expected result of a scenario. Error and Outputs are
// exclusive.
type Expect struct {
	// Error is the code the run must fail with.
	Error string `yaml:"error,omitempty"`

	// Outputs are expected boundary outputs. This is a subset match: only
	// the named outputs are checked. Events compare by trigger decision or
	// action outcome name.
	Outputs map[string]any `yaml:"outputs,omitempty"`
}

// Assertion validates the evaluation trace.
type Assertion struct {
	// Type is one of step_order, step_count, outcome.
	Type string `yaml:"type"`

	// Node names a node (used by step_count and outcome).
	Node string `yaml:"node,omitempty"`

	// Nodes is the expected evaluation order (used by step_order).
	Nodes []string `yaml:"nodes,omitempty"`

	// Count is the expected number of evaluations (used by step_count).
	Count int `yaml:"count,omitempty"`

	// Outcome is the expected action outcome (used by outcome).
	Outcome string `yaml:"outcome,omitempty"`
}

// Assertion type constants.
const (
	AssertStepOrder = "step_order"
	AssertStepCount = "step_count"
	AssertOutcome   = "outcome"
)

// DefaultRunID is the run id of scenarios that do not set one.
const DefaultRunID = "scenario-run"

// Key returns the cluster under test.
func (s *Scenario) Key() ir.ClusterKey {
	return ir.ClusterKey{ID: s.Cluster, Version: s.Version}
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected and a relative clusters directory is resolved against the
// file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Clusters != "" && !filepath.IsAbs(s.Clusters) {
		s.Clusters = filepath.Join(filepath.Dir(path), s.Clusters)
	}
	return s, nil
}

// ParseScenario decodes and validates a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadScenarios loads every scenario named by paths. A directory
// contributes its .yaml and .yml files in name order.
func LoadScenarios(paths ...string) ([]*Scenario, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
				found = append(found, filepath.Join(p, e.Name()))
			}
		}
		sort.Strings(found)
		files = append(files, found...)
	}

	scenarios := make([]*Scenario, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, f := range files {
		s, err := LoadScenario(f)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", s.Name, prev, f)
		}
		seen[s.Name] = f
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Cluster == "" {
		return fmt.Errorf("cluster is required")
	}
	if s.Version == "" {
		return fmt.Errorf("version is required")
	}
	if s.Expect.Error != "" && len(s.Expect.Outputs) > 0 {
		return fmt.Errorf("expect: error and outputs are exclusive")
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertStepOrder:
		if len(a.Nodes) == 0 {
			return fmt.Errorf("assertions[%d]: nodes list is required for step_order", index)
		}
	case AssertStepCount:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for step_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for step_count", index)
		}
	case AssertOutcome:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for outcome", index)
		}
		if !ir.ActionOutcome(a.Outcome).Valid() {
			return fmt.Errorf("assertions[%d]: unknown outcome %q", index, a.Outcome)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
