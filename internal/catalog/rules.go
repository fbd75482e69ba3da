package catalog

import (
	"github.com/roach88/ergo/internal/ir"
)

// CheckManifest returns every rule m breaks.
//
//	Source   no inputs, >=1 output, deterministic, no side effects, stateless
//	Compute  >=1 input, >=1 output, deterministic, no side effects, stateless
//	Trigger  deterministic, no side effects, stateless, exactly one Event output
//	Action   side effects, deterministic, not retryable, stateless,
//	         >=1 Event input, one output "outcome" of type Event
func CheckManifest(m *ir.Manifest) []error {
	var errs []error
	fail := func(rule, msg string) {
		errs = append(errs, &RuleError{Impl: m.Implementation(), Rule: rule, Message: msg})
	}

	if m.ID == "" || m.Version == "" {
		fail("identity", "id and version are required")
	}
	if !m.Kind.Valid() {
		fail("kind", "unknown kind "+string(m.Kind))
		return errs
	}
	if !m.Deterministic {
		fail("deterministic", string(m.Kind)+" must be deterministic")
	}
	if m.Stateful {
		fail("stateless", string(m.Kind)+" must be stateless")
	}
	if m.Kind == ir.KindAction {
		if !m.SideEffects {
			fail("side_effects", "Action must declare side effects")
		}
	} else if m.SideEffects {
		fail("side_effects", string(m.Kind)+" must not have side effects")
	}

	switch m.Kind {
	case ir.KindSource:
		if len(m.Inputs) > 0 {
			fail("inputs", "Source must not declare inputs")
		}
		if len(m.Outputs) == 0 {
			fail("outputs", "Source must declare at least one output")
		}
	case ir.KindCompute:
		if len(m.Inputs) == 0 {
			fail("inputs", "Compute must declare at least one input")
		}
		if len(m.Outputs) == 0 {
			fail("outputs", "Compute must declare at least one output")
		}
	case ir.KindTrigger:
		if len(m.Outputs) != 1 || m.Outputs[0].Type != ir.TypeEvent {
			fail("outputs", "Trigger must declare exactly one Event output")
		}
	case ir.KindAction:
		if m.Retryable {
			fail("retryable", "Action must not be retryable")
		}
		hasEvent := false
		for _, in := range m.Inputs {
			if in.Type == ir.TypeEvent {
				hasEvent = true
			}
		}
		if !hasEvent {
			fail("inputs", "Action must declare at least one Event input")
		}
		if len(m.Outputs) != 1 || m.Outputs[0].Name != "outcome" || m.Outputs[0].Type != ir.TypeEvent {
			fail("outputs", `Action must declare a single Event output named "outcome"`)
		}
	}

	seen := map[string]bool{}
	for _, in := range m.Inputs {
		if seen["in:"+in.Name] {
			fail("inputs", "duplicate input "+in.Name)
		}
		seen["in:"+in.Name] = true
		if !in.Type.Valid() {
			fail("inputs", "input "+in.Name+" has unknown type "+string(in.Type))
		}
	}
	for _, out := range m.Outputs {
		if seen["out:"+out.Name] {
			fail("outputs", "duplicate output "+out.Name)
		}
		seen["out:"+out.Name] = true
		if !out.Type.Valid() {
			fail("outputs", "output "+out.Name+" has unknown type "+string(out.Type))
		}
	}
	for _, p := range m.Parameters {
		if seen["param:"+p.Name] {
			fail("parameters", "duplicate parameter "+p.Name)
		}
		seen["param:"+p.Name] = true
		if p.Default != nil && p.Default.Type() != p.Type {
			fail("parameters", "default for "+p.Name+" is "+string(p.Default.Type())+", declared "+string(p.Type))
		}
	}
	return errs
}
