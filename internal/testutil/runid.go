package testutil

import (
	"fmt"
	"sync"
)

// FixedRunIDGenerator returns the same run id every time, so logs from a
// scenario compare byte for byte.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator for id. If id is empty,
// Generate returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

// SequentialRunIDGenerator returns test-run-1, test-run-2, ...
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialRunIDGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequentialRunIDGenerator creates a generator whose first id ends in 1.
func NewSequentialRunIDGenerator() *SequentialRunIDGenerator {
	return &SequentialRunIDGenerator{}
}

// Generate returns the next id in sequence.
func (g *SequentialRunIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("test-run-%d", g.seq)
}

// Reset restarts the sequence.
func (g *SequentialRunIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
