package compiler

import (
	"context"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/validate"
)

// ValidateTree runs the definition-time checks on def and, when def is
// sound, walks its nested cluster instances at every level: each instance
// gets the instantiation-time checks against its parent, and each nested
// cluster gets the definition-time checks on its own.
//
// Inference of def expands its instances, so an instance error also fails
// def's inference. When that is def's only error the instance errors are
// listed first, ahead of the E212 they cause.
//
// Errors found below the root carry the enclosing cluster key in Field,
// as "threshold_gate@1.0.0: nodes.cmp.kind". Every cluster is checked once
// however often it is instantiated. Returns all errors found.
func ValidateTree(ctx context.Context, def *ir.ClusterDefinition, env Env) []ValidationError {
	errs := ValidateDefinition(ctx, def, env)
	if len(errs) > 0 && !onlyInferenceFailed(errs) {
		return errs
	}
	w := &treeWalker{env: env, checked: map[ir.ClusterKey]bool{def.Key(): true}}
	w.walk(ctx, def, "")
	return append(w.errs, errs...)
}

func onlyInferenceFailed(errs []ValidationError) bool {
	return len(errs) == 1 && errs[0].Code == ErrInferenceFailed
}

type treeWalker struct {
	env     Env
	checked map[ir.ClusterKey]bool
	errs    []ValidationError
}

func (w *treeWalker) add(prefix string, errs []ValidationError) {
	for _, e := range errs {
		if prefix != "" {
			e.Field = prefix + ": " + e.Field
		}
		w.errs = append(w.errs, e)
	}
}

// walk checks the instances of parent, whose definition already passed.
func (w *treeWalker) walk(ctx context.Context, parent *ir.ClusterDefinition, prefix string) {
	for _, id := range parent.SortedNodeIDs() {
		n := parent.Nodes[id]
		if !n.Kind.IsCluster() {
			continue
		}
		if errs := ValidateInstantiation(ctx, parent, id, w.env); len(errs) > 0 {
			w.add(prefix, errs)
			continue
		}

		key := n.Kind.Key()
		if w.checked[key] {
			continue
		}
		w.checked[key] = true
		child, ok := w.env.Loader.Load(key.ID, key.Version)
		if !ok {
			continue // reported by ValidateInstantiation
		}
		if errs := ValidateDefinition(ctx, child, w.env); len(errs) > 0 {
			w.add(key.String(), errs)
			continue
		}
		w.walk(ctx, child, key.String())
	}
}

// Kind maps a definition or instantiation code onto the expansion-time
// error kind it reports the same violation as. Codes with no counterpart
// return "".
func (e ValidationError) Kind() validate.ErrorKind {
	switch e.Code {
	case ErrForbiddenWiring, ErrInstanceWiring:
		return validate.InvalidWiring
	case ErrInstancePortType, ErrBindingTypeMismatch, ErrInstanceBindingType:
		return validate.TypeMismatch
	case ErrUnknownPrimitive:
		return validate.UnknownPrimitive
	}
	return ""
}
