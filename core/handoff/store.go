package handoff

import (
	"context"

	"github.com/leynos/baton/core/identity"
)

// Store persists handoff records. Store is an upsert used for both
// creation and status transitions; records are never deleted.
type Store interface {
	// Store upserts the handoff by HandoffID.
	Store(ctx context.Context, h *Handoff) error

	// FindByID returns the handoff or ErrHandoffNotFound.
	FindByID(ctx context.Context, id identity.HandoffID) (*Handoff, error)

	// FindBySourceSession returns every handoff whose source is the
	// session, in creation order.
	FindBySourceSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*Handoff, error)
}
