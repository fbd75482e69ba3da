package signature

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/catalog"
	"github.com/roach88/ergo/internal/expand"
	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/testutil"
)

func infer(t *testing.T, def *ir.ClusterDefinition) ir.Signature {
	t.Helper()
	g, err := expand.Expand(def, testutil.CoreCatalog(), testutil.Loader(), expand.AllowUnbound())
	require.NoError(t, err)
	sig, err := Infer(g, testutil.CoreCatalog())
	require.NoError(t, err)
	return sig
}

func TestInferHelloWorld(t *testing.T) {
	sig := infer(t, testutil.HelloWorld())

	assert.Equal(t, ir.ActionLike, sig.Kind)
	assert.True(t, sig.HasSideEffects)
	assert.True(t, sig.IsOrigin)
	assert.Empty(t, sig.Inputs)
	assert.Equal(t, []ir.PortSpec{
		{Name: "action_outcome", Type: ir.TypeEvent, Cardinality: ir.Single, Wireable: false},
	}, sig.Outputs)
}

func TestInferThresholdGate(t *testing.T) {
	sig := infer(t, testutil.ThresholdGate())

	assert.Equal(t, ir.TriggerLike, sig.Kind)
	assert.False(t, sig.HasSideEffects)
	assert.False(t, sig.IsOrigin)
	assert.Equal(t, []ir.PortSpec{
		{Name: "signal", Type: ir.TypeNumber, Cardinality: ir.Single, Wireable: false},
	}, sig.Inputs)
	assert.Equal(t, []ir.PortSpec{
		{Name: "event", Type: ir.TypeEvent, Cardinality: ir.Single, Wireable: true},
	}, sig.Outputs)
}

func TestInferNestedStrategy(t *testing.T) {
	sig := infer(t, testutil.Strategy())

	assert.Equal(t, ir.ActionLike, sig.Kind)
	assert.True(t, sig.HasSideEffects)
	assert.True(t, sig.IsOrigin)
}

func TestInferBoundaryKinds(t *testing.T) {
	source := testutil.Output(testutil.Cluster("price_feed", "1.0.0",
		[]ir.NodeInstance{testutil.Node("src", "number_source", nil)}, nil),
		"price", "src", "value")

	compute := testutil.Output(testutil.Cluster("inverter", "1.0.0",
		[]ir.NodeInstance{testutil.Node("neg", "negate", nil)},
		[]ir.Edge{testutil.Wire("x", "x", "neg", "value")}),
		"out", "neg", "result")
	compute.InputPorts = []ir.InputPortSpec{{Name: "x", MapsTo: ir.GraphInputPlaceholder{Name: "x", Type: ir.TypeNumber, Required: true}}}

	// neg has no incoming edge and is not a Source, so this is not an origin.
	partial := testutil.Output(testutil.Cluster("partial", "1.0.0",
		[]ir.NodeInstance{
			testutil.Node("src", "number_source", nil),
			testutil.Node("neg", "negate", nil),
		}, nil),
		"out", "src", "value")

	tests := []struct {
		name   string
		def    *ir.ClusterDefinition
		kind   ir.BoundaryKind
		origin bool
	}{
		{"source only", source, ir.SourceLike, true},
		{"compute with input", compute, ir.ComputeLike, false},
		{"unfed compute root", partial, ir.SourceLike, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := infer(t, tt.def)
			assert.Equal(t, tt.kind, sig.Kind)
			assert.Equal(t, tt.origin, sig.IsOrigin)
			assert.False(t, sig.HasSideEffects)
		})
	}
}

func TestInferErrors(t *testing.T) {
	g, err := expand.Expand(testutil.HelloWorld(), nil, testutil.Loader())
	require.NoError(t, err)

	t.Run("missing primitive", func(t *testing.T) {
		empty := catalog.MustNew()
		_, err := Infer(g, empty)
		var ie *InferenceError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, ErrCodeMissingPrimitive, ie.Code)
	})

	t.Run("missing node", func(t *testing.T) {
		broken := *g
		broken.BoundaryOutputs = []ir.OutputPortSpec{{Name: "x", MapsTo: ir.PortRef{NodeID: "n99", PortName: "outcome"}}}
		_, err := Infer(&broken, testutil.CoreCatalog())
		var ie *InferenceError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, ErrCodeMissingNode, ie.Code)
	})

	t.Run("missing output", func(t *testing.T) {
		broken := *g
		broken.BoundaryOutputs = []ir.OutputPortSpec{{Name: "x", MapsTo: ir.PortRef{NodeID: "n1", PortName: "nope"}}}
		_, err := Infer(&broken, testutil.CoreCatalog())
		assert.True(t, IsInferenceError(err))
	})
}

func TestCheckDeclared(t *testing.T) {
	inferred := infer(t, testutil.ThresholdGate())

	t.Run("exact match", func(t *testing.T) {
		assert.Empty(t, CheckDeclared(inferred, inferred))
	})

	t.Run("hiding a port is allowed", func(t *testing.T) {
		declared := inferred
		declared.Outputs = []ir.PortSpec{}
		assert.Empty(t, CheckDeclared(declared, inferred))
	})

	t.Run("downgrading wireability is allowed", func(t *testing.T) {
		declared := inferred
		declared.Outputs = []ir.PortSpec{{Name: "event", Type: ir.TypeEvent, Cardinality: ir.Single, Wireable: false}}
		assert.Empty(t, CheckDeclared(declared, inferred))
	})

	t.Run("violations", func(t *testing.T) {
		declared := ir.Signature{
			Kind:           ir.ComputeLike,
			HasSideEffects: true,
			IsOrigin:       true,
			Inputs:         []ir.PortSpec{{Name: "signal", Type: ir.TypeBool, Cardinality: ir.Multiple}},
			Outputs: []ir.PortSpec{
				{Name: "ghost", Type: ir.TypeNumber, Cardinality: ir.Single},
			},
		}
		var codes []ViolationCode
		for _, v := range CheckDeclared(declared, inferred) {
			codes = append(codes, v.Code)
		}
		assert.ElementsMatch(t, []ViolationCode{
			ViolationKind,
			ViolationSideEffects,
			ViolationOrigin,
			ViolationPortType,
			ViolationCardinality,
			ViolationUnknownPort,
		}, codes)
	})

	t.Run("upgrading wireability", func(t *testing.T) {
		hello := infer(t, testutil.HelloWorld())
		declared := hello
		declared.Outputs = []ir.PortSpec{{Name: "action_outcome", Type: ir.TypeEvent, Cardinality: ir.Single, Wireable: true}}
		vs := CheckDeclared(declared, hello)
		require.Len(t, vs, 1)
		assert.Equal(t, ViolationWireability, vs[0].Code)
		assert.Equal(t, "action_outcome", vs[0].Port)
	})
}

func TestHashIgnoresPortOrder(t *testing.T) {
	a := ir.Signature{
		Kind: ir.ComputeLike,
		Inputs: []ir.PortSpec{
			{Name: "x", Type: ir.TypeNumber, Cardinality: ir.Single},
			{Name: "y", Type: ir.TypeNumber, Cardinality: ir.Single},
		},
		Outputs: []ir.PortSpec{{Name: "out", Type: ir.TypeNumber, Cardinality: ir.Single, Wireable: true}},
	}
	b := a
	b.Inputs = []ir.PortSpec{a.Inputs[1], a.Inputs[0]}

	assert.Equal(t, Hash(a), Hash(b))
	assert.Len(t, Hash(a), 64)

	c := a
	c.IsOrigin = true
	assert.NotEqual(t, Hash(a), Hash(c))
}

func TestIsBreakingChange(t *testing.T) {
	base := infer(t, testutil.ThresholdGate())

	withExtraOutput := base
	withExtraOutput.Outputs = append([]ir.PortSpec{}, base.Outputs...)
	withExtraOutput.Outputs = append(withExtraOutput.Outputs, ir.PortSpec{Name: "level", Type: ir.TypeNumber, Cardinality: ir.Single, Wireable: true})

	retyped := base
	retyped.Inputs = []ir.PortSpec{{Name: "signal", Type: ir.TypeBool, Cardinality: ir.Single}}

	lostWire := base
	lostWire.Outputs = []ir.PortSpec{{Name: "event", Type: ir.TypeEvent, Cardinality: ir.Single}}

	reordered := withExtraOutput
	reordered.Outputs = []ir.PortSpec{withExtraOutput.Outputs[1], withExtraOutput.Outputs[0]}

	assert.False(t, IsBreakingChange(base, base))
	assert.False(t, IsBreakingChange(withExtraOutput, reordered))
	assert.True(t, IsBreakingChange(base, withExtraOutput))
	assert.True(t, IsBreakingChange(withExtraOutput, base))
	assert.True(t, IsBreakingChange(base, retyped))
	assert.True(t, IsBreakingChange(base, lostWire))
	assert.True(t, IsBreakingChange(lostWire, base))
}

func TestIsWiringCompatible(t *testing.T) {
	base := infer(t, testutil.ThresholdGate())

	withExtraOutput := base
	withExtraOutput.Outputs = append([]ir.PortSpec{}, base.Outputs...)
	withExtraOutput.Outputs = append(withExtraOutput.Outputs, ir.PortSpec{Name: "level", Type: ir.TypeNumber, Cardinality: ir.Single, Wireable: true})

	lostWire := base
	lostWire.Outputs = []ir.PortSpec{{Name: "event", Type: ir.TypeEvent, Cardinality: ir.Single}}

	flags := base
	flags.HasSideEffects = true

	assert.True(t, IsWiringCompatible(base, base))
	assert.True(t, IsWiringCompatible(base, withExtraOutput))
	assert.True(t, IsWiringCompatible(lostWire, base))
	assert.False(t, IsWiringCompatible(withExtraOutput, base))
	assert.False(t, IsWiringCompatible(base, lostWire))
	assert.False(t, IsWiringCompatible(base, flags))
}

func TestCacheKey(t *testing.T) {
	cat := testutil.CoreCatalog()
	g1, err := expand.Expand(testutil.HelloWorld(), cat, testutil.Loader())
	require.NoError(t, err)
	g2, err := expand.Expand(testutil.HelloWorld(), cat, testutil.Loader())
	require.NoError(t, err)
	g3, err := expand.Expand(testutil.HelloWorldGated(), cat, testutil.Loader())
	require.NoError(t, err)

	k1, err := CacheKey(g1, cat)
	require.NoError(t, err)
	k2, err := CacheKey(g2, cat)
	require.NoError(t, err)
	k3, err := CacheKey(g3, cat)
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3, "parameter values are part of the graph structure")

	_, err = CacheKey(g1, catalog.MustNew())
	assert.True(t, IsInferenceError(err))
}

type countingCache struct {
	*Memory
	mu   sync.Mutex
	gets int
	puts int
}

func (c *countingCache) Get(ctx context.Context, key string) (ir.Signature, bool, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.Memory.Get(ctx, key)
}

func (c *countingCache) Put(ctx context.Context, key string, sig ir.Signature) error {
	c.mu.Lock()
	c.puts++
	c.mu.Unlock()
	return c.Memory.Put(ctx, key, sig)
}

func TestResolverCaches(t *testing.T) {
	cache := &countingCache{Memory: NewMemory()}
	r := &Resolver{Catalog: testutil.CoreCatalog(), Loader: testutil.Loader(), Cache: cache}
	ctx := context.Background()

	first, err := r.Resolve(ctx, testutil.Strategy())
	require.NoError(t, err)
	second, err := r.ResolveKey(ctx, ir.ClusterKey{ID: "strategy", Version: "1.0.0"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, 1, cache.Len())
}

func TestResolverWithoutCache(t *testing.T) {
	r := &Resolver{Catalog: testutil.CoreCatalog(), Loader: testutil.Loader()}
	sig, err := r.Resolve(context.Background(), testutil.ThresholdGate())
	require.NoError(t, err)
	assert.Equal(t, ir.TriggerLike, sig.Kind)
}

func TestResolveKeyMissing(t *testing.T) {
	r := NewResolver(testutil.CoreCatalog(), testutil.NewLoader())
	_, err := r.ResolveKey(context.Background(), ir.ClusterKey{ID: "nope", Version: "1.0.0"})
	assert.True(t, expand.IsMissingCluster(err))
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Put(ctx, "k", ir.Signature{Kind: ir.ActionLike})
			_, ok, err := m.Get(ctx, "k")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, m.Len())
}
