package primitive

import (
	"fmt"
	"sort"

	"github.com/roach88/ergo/internal/ir"
)

// Registries holds primitive implementations by role, keyed by
// (impl_id, version). It is built once and read-only afterwards.
type Registries struct {
	sources  map[ir.ImplementationInstance]Source
	computes map[ir.ImplementationInstance]Compute
	triggers map[ir.ImplementationInstance]Trigger
	actions  map[ir.ImplementationInstance]Action
}

// NewRegistries returns empty registries.
func NewRegistries() *Registries {
	return &Registries{
		sources:  map[ir.ImplementationInstance]Source{},
		computes: map[ir.ImplementationInstance]Compute{},
		triggers: map[ir.ImplementationInstance]Trigger{},
		actions:  map[ir.ImplementationInstance]Action{},
	}
}

// Register adds p under its manifest identity. The manifest kind must
// match the interface p implements.
func (r *Registries) Register(p Primitive) error {
	m := p.Manifest()
	if m == nil {
		return fmt.Errorf("register %T: nil manifest", p)
	}
	key := m.Implementation()
	if r.has(key) {
		return fmt.Errorf("register %s: duplicate implementation", key)
	}

	switch m.Kind {
	case ir.KindSource:
		s, ok := p.(Source)
		if !ok {
			return kindMismatch(key, m.Kind, p)
		}
		r.sources[key] = s
	case ir.KindCompute:
		c, ok := p.(Compute)
		if !ok {
			return kindMismatch(key, m.Kind, p)
		}
		r.computes[key] = c
	case ir.KindTrigger:
		t, ok := p.(Trigger)
		if !ok {
			return kindMismatch(key, m.Kind, p)
		}
		r.triggers[key] = t
	case ir.KindAction:
		a, ok := p.(Action)
		if !ok {
			return kindMismatch(key, m.Kind, p)
		}
		r.actions[key] = a
	default:
		return fmt.Errorf("register %s: unknown kind %q", key, m.Kind)
	}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registries) MustRegister(ps ...Primitive) *Registries {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func kindMismatch(key ir.ImplementationInstance, kind ir.PrimitiveKind, p Primitive) error {
	return fmt.Errorf("register %s: manifest kind %s but %T does not implement it", key, kind, p)
}

func (r *Registries) has(key ir.ImplementationInstance) bool {
	_, s := r.sources[key]
	_, c := r.computes[key]
	_, t := r.triggers[key]
	_, a := r.actions[key]
	return s || c || t || a
}

func (r *Registries) Source(key ir.ImplementationInstance) (Source, bool) {
	s, ok := r.sources[key]
	return s, ok
}

func (r *Registries) Compute(key ir.ImplementationInstance) (Compute, bool) {
	c, ok := r.computes[key]
	return c, ok
}

func (r *Registries) Trigger(key ir.ImplementationInstance) (Trigger, bool) {
	t, ok := r.triggers[key]
	return t, ok
}

func (r *Registries) Action(key ir.ImplementationInstance) (Action, bool) {
	a, ok := r.actions[key]
	return a, ok
}

// Manifests returns every registered manifest ordered by (impl_id, version).
func (r *Registries) Manifests() []*ir.Manifest {
	var out []*ir.Manifest
	for _, s := range r.sources {
		out = append(out, s.Manifest())
	}
	for _, c := range r.computes {
		out = append(out, c.Manifest())
	}
	for _, t := range r.triggers {
		out = append(out, t.Manifest())
	}
	for _, a := range r.actions {
		out = append(out, a.Manifest())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return out[i].ID < out[j].ID
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Core returns registries holding every built-in primitive.
func Core() *Registries {
	return NewRegistries().MustRegister(
		NewNumberSource(),
		NewBooleanSource(),
		NewAdd(),
		NewSubtract(),
		NewMultiply(),
		NewDivide(),
		NewNegate(),
		NewGt(),
		NewLt(),
		NewEq(),
		NewNeq(),
		NewAnd(),
		NewOr(),
		NewNot(),
		NewSelect(),
		NewConstNumber(),
		NewConstBool(),
		NewEmitIfTrue(),
		NewAckAction(),
		NewAnnotateAction(nil),
	)
}
