package signature

import (
	"fmt"
	"sort"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/ir"
)

// Canonical returns the IR form of sig with ports sorted by name, so that
// port declaration order does not affect identity.
func Canonical(sig ir.Signature) ir.IRObject {
	return ir.IRObject{
		"kind":             ir.IRString(sig.Kind),
		"inputs":           canonicalPorts(sig.Inputs),
		"outputs":          canonicalPorts(sig.Outputs),
		"has_side_effects": ir.IRBool(sig.HasSideEffects),
		"is_origin":        ir.IRBool(sig.IsOrigin),
	}
}

func canonicalPorts(ports []ir.PortSpec) ir.IRArray {
	sorted := make([]ir.PortSpec, len(ports))
	copy(sorted, ports)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	arr := make(ir.IRArray, 0, len(sorted))
	for _, p := range sorted {
		arr = append(arr, ir.IRObject{
			"name":        ir.IRString(p.Name),
			"type":        ir.IRString(p.Type),
			"cardinality": ir.IRString(p.Cardinality),
			"wireable":    ir.IRBool(p.Wireable),
		})
	}
	return arr
}

// Hash returns the content hash of sig.
func Hash(sig ir.Signature) string {
	return ir.MustHashCanonical(ir.DomainSignature, Canonical(sig))
}

// IsBreakingChange reports whether the signature hashes differ. Any change
// to the port set, a port type, cardinality or wireability, the boundary
// kind or either flag is breaking.
func IsBreakingChange(prev, next ir.Signature) bool {
	return Hash(prev) != Hash(next)
}

// IsWiringCompatible reports whether every parent wired against prev still
// wires against next: kind and flags are unchanged, no output was removed,
// narrowed or lost wireability, and the input set is the same. It is
// advisory; a compatible change is still a breaking one.
func IsWiringCompatible(prev, next ir.Signature) bool {
	if prev.Kind != next.Kind || prev.HasSideEffects != next.HasSideEffects || prev.IsOrigin != next.IsOrigin {
		return false
	}
	for _, o := range prev.Outputs {
		n, ok := next.Output(o.Name)
		if !ok || n.Type != o.Type || n.Cardinality != o.Cardinality || (o.Wireable && !n.Wireable) {
			return false
		}
	}
	if len(prev.Inputs) != len(next.Inputs) {
		return false
	}
	for _, o := range prev.Inputs {
		n, ok := next.Input(o.Name)
		if !ok || n.Type != o.Type || n.Cardinality != o.Cardinality {
			return false
		}
	}
	return true
}

// CacheKey is the content address of an inference: the graph structure
// plus the hash of every manifest the graph references. Two calls with the
// same key are guaranteed to infer the same signature.
func CacheKey(g *ir.ExpandedGraph, cat catalog.Catalog) (string, error) {
	manifests := ir.IRObject{}
	for _, id := range g.SortedNodeIDs() {
		impl := g.Nodes[id].Implementation
		m, ok := cat.Manifest(impl)
		if !ok {
			return "", &InferenceError{
				Code:    ErrCodeMissingPrimitive,
				Message: fmt.Sprintf("catalog has no %s", impl),
				NodeID:  id,
			}
		}
		manifests[impl.String()] = ir.IRString(m.Hash())
	}
	return ir.HashCanonical(ir.DomainSignatureCache, ir.IRObject{
		"graph":     g.Canonical(),
		"manifests": manifests,
	})
}
