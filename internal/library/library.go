// Package library is the cluster store: an arena of published cluster
// definitions keyed by (id, version).
//
// Definitions are immutable once added. Re-adding an identical definition
// is a no-op; adding a different definition under an existing key fails.
package library

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/roach88/ergo/internal/ir"
)

// ErrConflict is returned when a key is already published with different content.
var ErrConflict = errors.New("cluster version already published with different content")

// Library holds cluster definitions. Safe for concurrent use.
type Library struct {
	mu   sync.RWMutex
	defs map[ir.ClusterKey]*ir.ClusterDefinition
}

// New returns a library holding defs.
func New(defs ...*ir.ClusterDefinition) (*Library, error) {
	l := &Library{defs: make(map[ir.ClusterKey]*ir.ClusterDefinition)}
	for _, d := range defs {
		if err := l.Add(d); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add publishes def.
func (l *Library) Add(def *ir.ClusterDefinition) error {
	if def.ID == "" || def.Version == "" {
		return fmt.Errorf("cluster id and version are required")
	}
	key := def.Key()

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.defs[key]; ok {
		if reflect.DeepEqual(existing, def) {
			return nil
		}
		return fmt.Errorf("%s: %w", key, ErrConflict)
	}
	l.defs[key] = def
	return nil
}

// Load implements expand.Loader.
func (l *Library) Load(id, version string) (*ir.ClusterDefinition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[ir.ClusterKey{ID: id, Version: version}]
	return d, ok
}

// Keys returns every published key sorted by id then version.
func (l *Library) Keys() []ir.ClusterKey {
	l.mu.RLock()
	defer l.mu.RUnlock()
	keys := make([]ir.ClusterKey, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ID != keys[j].ID {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].Version < keys[j].Version
	})
	return keys
}

// Versions returns the published versions of id in sorted order.
func (l *Library) Versions(id string) []string {
	var out []string
	for _, k := range l.Keys() {
		if k.ID == id {
			out = append(out, k.Version)
		}
	}
	return out
}

// Len returns the number of published definitions.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.defs)
}
