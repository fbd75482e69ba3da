// Package pipeline wires the phases together: load a cluster from a
// library, expand it, infer its signature, validate the expanded graph and
// run it. The command line, the HTTP API and the scenario harness all go
// through a Pipeline.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/compiler"
	"github.com/roach88/ergo/internal/engine"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/library"
	"github.com/roach88/ergo/internal/primitive"
	"github.com/roach88/ergo/internal/signature"
	"github.com/roach88/ergo/internal/store"
	"github.com/roach88/ergo/internal/validate"
)

// RunLog records run outcomes. Implemented by *store.Store.
type RunLog interface {
	WriteRun(ctx context.Context, r store.Run) (int64, error)
}

// Pipeline runs the phases for clusters published in one library against
// one catalog.
//
// Thread-safety: safe for concurrent use once built.
type Pipeline struct {
	lib      *library.Library
	cat      *catalog.Static
	resolver *signature.Resolver
	engine   *engine.Engine
	runs     RunLog
	runIDs   engine.RunIDGenerator
	logger   *slog.Logger
}

type options struct {
	cache   signature.Cache
	logger  *slog.Logger
	metrics *engine.Metrics
	runIDs  engine.RunIDGenerator
	runs    RunLog
	noCache bool
}

// Option configures a Pipeline.
type Option func(*options)

// WithCache sets the signature cache. Default: an in-process cache.
func WithCache(c signature.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithoutCache disables signature caching.
func WithoutCache() Option {
	return func(o *options) {
		o.noCache = true
	}
}

// WithLogger sets the logger for the pipeline and its engine.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics records engine metrics.
func WithMetrics(m *engine.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithRunIDGenerator sets how Run names runs in logs and the run log.
// Default: engine.UUIDv7Generator.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(o *options) {
		o.runIDs = g
	}
}

// WithRunLog records every Run outcome in l.
func WithRunLog(l RunLog) Option {
	return func(o *options) {
		o.runs = l
	}
}

// New builds a pipeline over lib. The catalog is the manifest set of reg,
// so every cataloged primitive has an implementation.
func New(lib *library.Library, reg *primitive.Registries, opts ...Option) (*Pipeline, error) {
	o := &options{logger: slog.Default(), runIDs: engine.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(o)
	}

	cat, err := catalog.New(reg.Manifests()...)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	resolver := signature.NewResolver(cat, lib)
	switch {
	case o.noCache:
		resolver.Cache = nil
	case o.cache != nil:
		resolver.Cache = o.cache
	}

	engOpts := []engine.Option{engine.WithLogger(o.logger)}
	if o.metrics != nil {
		engOpts = append(engOpts, engine.WithMetrics(o.metrics))
	}

	return &Pipeline{
		lib:      lib,
		cat:      cat,
		resolver: resolver,
		engine:   engine.New(reg, engOpts...),
		runs:     o.runs,
		runIDs:   o.runIDs,
		logger:   o.logger,
	}, nil
}

// Catalog returns the catalog the pipeline validates against.
func (p *Pipeline) Catalog() catalog.Catalog { return p.cat }

// Keys lists the published clusters.
func (p *Pipeline) Keys() []ir.ClusterKey { return p.lib.Keys() }

// Load returns the definition published under key.
func (p *Pipeline) Load(key ir.ClusterKey) (*ir.ClusterDefinition, error) {
	def, ok := p.lib.Load(key.ID, key.Version)
	if !ok {
		return nil, &expand.Error{
			Code:    expand.ErrCodeMissingCluster,
			Message: fmt.Sprintf("cluster %s not found", key),
			Cluster: key,
		}
	}
	return def, nil
}

// Check runs the definition-time validator on key and the
// instantiation-time validator on every nested instance below it. It
// returns every violation; an empty slice means the cluster may be
// expanded.
func (p *Pipeline) Check(ctx context.Context, key ir.ClusterKey) ([]compiler.ValidationError, error) {
	def, err := p.Load(key)
	if err != nil {
		return nil, err
	}
	errs := compiler.ValidateTree(ctx, def, compiler.Env{
		Catalog:  p.cat,
		Loader:   p.lib,
		Resolver: p.resolver,
	})
	if errs == nil {
		errs = []compiler.ValidationError{}
	}
	return errs, nil
}

// Expand flattens key with params bound at the root.
func (p *Pipeline) Expand(key ir.ClusterKey, params ir.Parameters) (*ir.ExpandedGraph, error) {
	def, err := p.Load(key)
	if err != nil {
		return nil, err
	}
	return expand.Expand(def, p.cat, p.lib, expand.WithParameters(params))
}

// Signature infers the signature of key, through the cache.
func (p *Pipeline) Signature(ctx context.Context, key ir.ClusterKey) (ir.Signature, error) {
	sig, err := p.resolver.ResolveKey(ctx, key)
	if err != nil {
		return ir.Signature{}, err
	}
	p.logger.Debug("signature resolved", "cluster", key.String(), "kind", sig.Kind, "hash", signature.Hash(sig))
	return sig, nil
}

// Validate expands key and validates the result.
func (p *Pipeline) Validate(key ir.ClusterKey, params ir.Parameters) (validate.Result, error) {
	g, err := p.Expand(key, params)
	if err != nil {
		return validate.Result{}, err
	}
	return p.ValidateGraph(g), nil
}

// ValidateGraph validates an already expanded graph.
func (p *Pipeline) ValidateGraph(g *ir.ExpandedGraph) validate.Result {
	return validate.Validate(g, p.cat)
}

// Run checks key, expands it and runs it once against execCtx. A cluster
// that fails Check is returned as a *RejectedError before expansion.
//
// The run id is generated here and handed to the engine through ctx; it
// names the run in logs and in the run log.
func (p *Pipeline) Run(ctx context.Context, key ir.ClusterKey, params ir.Parameters, execCtx *engine.Context) (*engine.Report, error) {
	runID := p.runIDs.Generate()
	ctx = engine.WithRunID(ctx, runID)

	errs, err := p.Check(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(errs) > 0 {
		err := &RejectedError{Cluster: key, Errors: errs}
		p.logger.Warn("cluster rejected", "run_id", runID, "cluster", key.String(), "errors", len(errs))
		p.record(ctx, runID, key, nil, err)
		return nil, err
	}
	g, err := p.Expand(key, params)
	if err != nil {
		return nil, err
	}
	rep, err := p.engine.Run(ctx, g, p.cat, execCtx)
	p.record(ctx, runID, key, rep, err)
	return rep, err
}

// RunGraph runs an already expanded graph once.
func (p *Pipeline) RunGraph(ctx context.Context, g *ir.ExpandedGraph, execCtx *engine.Context) (*engine.Report, error) {
	return p.engine.Run(engine.WithRunID(ctx, p.runIDs.Generate()), g, p.cat, execCtx)
}

// record writes the outcome of a run to the run log. Failures to record
// are logged and do not change the run's result.
func (p *Pipeline) record(ctx context.Context, runID string, key ir.ClusterKey, rep *engine.Report, runErr error) {
	if p.runs == nil {
		return
	}
	r := store.Run{RunID: runID, ClusterID: key.ID, Version: key.Version, Status: store.RunOK}
	switch {
	case runErr == nil:
		data, err := json.Marshal(rep)
		if err != nil {
			p.logger.Warn("run not recorded", "cluster", key.String(), "error", err)
			return
		}
		r.Report = data
	case engine.IsInvalidGraph(runErr), IsRejected(runErr):
		r.Status = store.RunInvalid
		r.Error = runErr.Error()
	default:
		r.Status = store.RunFailed
		r.Error = runErr.Error()
	}
	if _, err := p.runs.WriteRun(ctx, r); err != nil {
		p.logger.Warn("run not recorded", "cluster", key.String(), "error", err)
	}
}
