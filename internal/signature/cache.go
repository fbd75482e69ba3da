package signature

import (
	"context"
	"sync"

	"github.com/roach88/ergo/internal/ir"
)

// Cache stores inferred signatures by CacheKey.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (ir.Signature, bool, error)
	Put(ctx context.Context, key string, sig ir.Signature) error
}

// Memory is an in-process Cache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]ir.Signature
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]ir.Signature)}
}

func (m *Memory) Get(_ context.Context, key string) (ir.Signature, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sig, ok := m.entries[key]
	return sig, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, sig ir.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = sig
	return nil
}

// Len returns the number of cached signatures.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
