package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string        // Assertion type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []engine.Step // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	if len(e.Trace) == 0 {
		fmt.Fprintf(&buf, "  (no steps)\n")
	}
	for _, step := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s", step.Seq, step.NodeID, step.Impl)
		if out, ok := step.Outputs["outcome"]; ok {
			fmt.Fprintf(&buf, " %s", formatValue(out))
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion against steps and returns the
// failure messages. An empty slice means all assertions held.
func EvaluateAssertions(steps []engine.Step, assertions []Assertion) []string {
	failures := []string{}
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertStepOrder:
			err = assertStepOrder(steps, a)
		case AssertStepCount:
			err = assertStepCount(steps, a)
		case AssertOutcome:
			err = assertOutcome(steps, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// stepMatches reports whether ref names step: by runtime id, by
// implementation or by implementation id.
func stepMatches(step engine.Step, ref string) bool {
	if step.NodeID == ref || step.Impl == ref {
		return true
	}
	id, _, _ := strings.Cut(step.Impl, "@")
	return id == ref
}

// assertStepOrder checks that the named nodes were evaluated in order.
// Other steps may come between them.
func assertStepOrder(steps []engine.Step, a Assertion) error {
	next := 0
	for _, step := range steps {
		if next < len(a.Nodes) && stepMatches(step, a.Nodes[next]) {
			next++
		}
	}
	if next == len(a.Nodes) {
		return nil
	}

	actual := make([]string, len(steps))
	for i, step := range steps {
		actual[i] = step.Impl
	}
	return &AssertionError{
		Type:     AssertStepOrder,
		Expected: strings.Join(a.Nodes, " -> "),
		Actual:   fmt.Sprintf("%q not found after %s", a.Nodes[next], strings.Join(a.Nodes[:next], " -> ")),
		Trace:    steps,
	}
}

// assertStepCount checks the number of evaluations matching a node.
func assertStepCount(steps []engine.Step, a Assertion) error {
	count := 0
	for _, step := range steps {
		if stepMatches(step, a.Node) {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStepCount,
		Expected: fmt.Sprintf("%s evaluated %d times", a.Node, a.Count),
		Actual:   fmt.Sprintf("evaluated %d times", count),
		Trace:    steps,
	}
}

// assertOutcome checks the outcome of the first action step matching a
// node.
func assertOutcome(steps []engine.Step, a Assertion) error {
	for _, step := range steps {
		if step.Kind != ir.KindAction || !stepMatches(step, a.Node) {
			continue
		}
		got, _ := step.Outputs["outcome"].(ir.OutcomeValue)
		if string(got) == a.Outcome {
			return nil
		}
		return &AssertionError{
			Type:     AssertOutcome,
			Expected: fmt.Sprintf("%s reports %s", a.Node, a.Outcome),
			Actual:   fmt.Sprintf("%s reported %s", step.NodeID, string(got)),
			Trace:    steps,
		}
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("%s reports %s", a.Node, a.Outcome),
		Actual:   "no matching action step",
		Trace:    steps,
	}
}
