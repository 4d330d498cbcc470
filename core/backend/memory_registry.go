package backend

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// =============================================================================
// In-Memory Backend Registry
// =============================================================================

// MemoryRegistry is a map-backed Registry for tests and embedded use.
type MemoryRegistry struct {
	mu     sync.RWMutex
	byName map[string]*Backend
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{byName: make(map[string]*Backend)}
}

// Register adds a new backend.
func (r *MemoryRegistry) Register(ctx context.Context, b *Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[b.Name]; ok {
		return fmt.Errorf("%w: %s", ErrBackendExists, b.Name)
	}
	r.byName[b.Name] = b.Clone()
	return nil
}

// Update replaces an existing backend record.
func (r *MemoryRegistry) Update(ctx context.Context, b *Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[b.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, b.Name)
	}
	r.byName[b.Name] = b.Clone()
	return nil
}

// FindByName returns the backend or ErrBackendNotFound.
func (r *MemoryRegistry) FindByName(ctx context.Context, name string) (*Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	return b.Clone(), nil
}

// List returns all backends ordered by name.
func (r *MemoryRegistry) List(ctx context.Context) ([]*Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Backend, 0, len(r.byName))
	for _, b := range r.byName {
		out = append(out, b.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes the backend or returns ErrBackendNotFound.
func (r *MemoryRegistry) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("%w: %s", ErrBackendNotFound, name)
	}
	delete(r.byName, name)
	return nil
}

var _ Registry = (*MemoryRegistry)(nil)
