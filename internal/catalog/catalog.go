// Package catalog resolves implementation references to manifests.
//
// A Catalog is a read-only snapshot. Callers treat one value as
// version-consistent for the duration of a single inference, validation
// or execution call.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/ergo/internal/ir"
)

// Catalog looks up manifests by (impl_id, version).
type Catalog interface {
	Manifest(ref ir.ImplementationInstance) (*ir.Manifest, bool)
	// Identity is a content hash over every manifest in the snapshot.
	Identity() string
}

// Static is an in-memory Catalog built from a fixed manifest set.
type Static struct {
	manifests map[ir.ImplementationInstance]*ir.Manifest
	identity  string
}

// New validates each manifest against the rules for its kind and builds
// a catalog. All violations are reported together.
func New(manifests ...*ir.Manifest) (*Static, error) {
	c := &Static{manifests: make(map[ir.ImplementationInstance]*ir.Manifest, len(manifests))}
	var errs []error
	for _, m := range manifests {
		key := m.Implementation()
		if _, dup := c.manifests[key]; dup {
			errs = append(errs, &RuleError{Impl: key, Rule: "unique", Message: "duplicate manifest"})
			continue
		}
		errs = append(errs, CheckManifest(m)...)
		c.manifests[key] = m
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	c.identity = identity(c.manifests)
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(manifests ...*ir.Manifest) *Static {
	c, err := New(manifests...)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Static) Manifest(ref ir.ImplementationInstance) (*ir.Manifest, bool) {
	m, ok := c.manifests[ref]
	return m, ok
}

func (c *Static) Identity() string { return c.identity }

// Len returns the number of manifests.
func (c *Static) Len() int { return len(c.manifests) }

// Refs returns every implementation reference in sorted order.
func (c *Static) Refs() []ir.ImplementationInstance {
	refs := make([]ir.ImplementationInstance, 0, len(c.manifests))
	for ref := range c.manifests {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs
}

func identity(manifests map[ir.ImplementationInstance]*ir.Manifest) string {
	obj := make(ir.IRObject, len(manifests))
	for ref, m := range manifests {
		obj[ref.String()] = ir.IRString(m.Hash())
	}
	return ir.MustHashCanonical(ir.DomainCatalog, obj)
}

// RuleError is a manifest that breaks a rule of its kind.
type RuleError struct {
	Impl    ir.ImplementationInstance
	Rule    string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("manifest %s: %s: %s", e.Impl, e.Rule, e.Message)
}
