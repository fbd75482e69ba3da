package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/store/redisstore"
)

func setup(t *testing.T, opts ...redisstore.Option) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	s := redisstore.NewFromClient(client, opts...)
	t.Cleanup(func() { s.Close() })
	return mr, s
}

func sig() ir.Signature {
	return ir.Signature{
		Kind:     ir.SourceLike,
		Inputs:   []ir.PortSpec{},
		Outputs:  []ir.PortSpec{{Name: "value", Type: ir.TypeNumber, Cardinality: ir.Single, Wireable: true}},
		IsOrigin: true,
	}
}

func TestGetPut(t *testing.T) {
	_, s := setup(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "k1", sig()))

	got, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sig(), got)

	n, err := s.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, s.Ping(ctx))
}

func TestPrefix(t *testing.T) {
	mr, s := setup(t, redisstore.WithPrefix("test:"))
	require.NoError(t, s.Put(context.Background(), "k1", sig()))

	assert.True(t, mr.Exists("test:k1"))
	assert.True(t, mr.Exists("test:index"))
	assert.False(t, mr.Exists("ergo:signature:k1"))
}

func TestTTL(t *testing.T) {
	mr, s := setup(t, redisstore.WithTTL(time.Minute))
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k1", sig()))

	assert.Equal(t, time.Minute, mr.TTL("ergo:signature:k1"))

	mr.FastForward(2 * time.Minute)
	_, ok, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCorruptEntry(t *testing.T) {
	mr, s := setup(t)
	require.NoError(t, mr.Set("ergo:signature:bad", "{"))

	_, _, err := s.Get(context.Background(), "bad")
	assert.Error(t, err)
}

func TestNewFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := redisstore.NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))

	_, err = redisstore.NewFromURL("http://nope")
	assert.Error(t, err)
}
