package backend

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// Agent Backend Metadata
// =============================================================================

var (
	// ErrBackendNotFound indicates no backend is registered under the name.
	ErrBackendNotFound = errors.New("backend not found")

	// ErrBackendExists indicates a backend is already registered under
	// the name.
	ErrBackendExists = errors.New("backend already registered")

	// ErrInvalidBackend indicates the backend record is malformed.
	ErrInvalidBackend = errors.New("invalid backend")
)

// Backend describes an agent backend that sessions can run against.
// The coordinator itself never calls a backend; this registry exists so
// callers can resolve a session's AgentBackend name to something
// addressable.
type Backend struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBackend builds a backend record. Name and kind are required.
func NewBackend(name, kind, endpoint string, now time.Time) (*Backend, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidBackend)
	}
	if strings.TrimSpace(kind) == "" {
		return nil, fmt.Errorf("%w: kind is required", ErrInvalidBackend)
	}
	return &Backend{
		Name:      name,
		Kind:      kind,
		Endpoint:  endpoint,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns an independent copy.
func (b *Backend) Clone() *Backend {
	out := *b
	return &out
}
