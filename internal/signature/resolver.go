package signature

import (
	"context"
	"fmt"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
)

// Resolver infers signatures of cluster definitions, consulting a cache
// keyed by CacheKey. A nil Cache disables caching.
type Resolver struct {
	Catalog catalog.Catalog
	Loader  expand.Loader
	Cache   Cache
}

// NewResolver returns a Resolver backed by an in-process cache.
func NewResolver(cat catalog.Catalog, loader expand.Loader) *Resolver {
	return &Resolver{Catalog: cat, Loader: loader, Cache: NewMemory()}
}

// Resolve expands def without a parent context and infers its signature.
// Unbound exposed parameters are tolerated since they cannot change the
// signature.
func (r *Resolver) Resolve(ctx context.Context, def *ir.ClusterDefinition) (ir.Signature, error) {
	g, err := expand.Expand(def, r.Catalog, r.Loader, expand.AllowUnbound())
	if err != nil {
		return ir.Signature{}, err
	}
	return r.ResolveGraph(ctx, g)
}

// ResolveKey loads the definition for key and resolves it.
func (r *Resolver) ResolveKey(ctx context.Context, key ir.ClusterKey) (ir.Signature, error) {
	def, ok := r.Loader.Load(key.ID, key.Version)
	if !ok {
		return ir.Signature{}, &expand.Error{
			Code:    expand.ErrCodeMissingCluster,
			Message: fmt.Sprintf("cluster %s not found", key),
			Cluster: key,
		}
	}
	return r.Resolve(ctx, def)
}

// ResolveGraph infers the signature of an already expanded graph.
func (r *Resolver) ResolveGraph(ctx context.Context, g *ir.ExpandedGraph) (ir.Signature, error) {
	if r.Cache == nil {
		return Infer(g, r.Catalog)
	}

	key, err := CacheKey(g, r.Catalog)
	if err != nil {
		return ir.Signature{}, err
	}
	if sig, ok, err := r.Cache.Get(ctx, key); err != nil {
		return ir.Signature{}, fmt.Errorf("signature cache get: %w", err)
	} else if ok {
		return sig, nil
	}

	sig, err := Infer(g, r.Catalog)
	if err != nil {
		return ir.Signature{}, err
	}
	if err := r.Cache.Put(ctx, key, sig); err != nil {
		return ir.Signature{}, fmt.Errorf("signature cache put: %w", err)
	}
	return sig, nil
}
