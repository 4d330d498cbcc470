package backend

import "context"

// =============================================================================
// Backend Registry Contract
// =============================================================================

// Registry is the backend metadata store. Names are unique; Register
// fails with ErrBackendExists on a taken name and Update fails with
// ErrBackendNotFound on an unknown one.
type Registry interface {
	// Register adds a new backend.
	Register(ctx context.Context, b *Backend) error

	// Update replaces an existing backend record.
	Update(ctx context.Context, b *Backend) error

	// FindByName returns the backend or ErrBackendNotFound.
	FindByName(ctx context.Context, name string) (*Backend, error)

	// List returns all backends ordered by name.
	List(ctx context.Context) ([]*Backend, error)

	// Remove deletes the backend or returns ErrBackendNotFound.
	Remove(ctx context.Context, name string) error
}
