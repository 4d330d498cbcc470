package snapshot

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
)

// MemoryStore is a volatile snapshot store. Append order per session is
// preserved exactly, so creation-order retrieval does not depend on
// timestamp resolution.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]*ContextSnapshot
	bySession map[identity.AgentSessionID][]string
	clock     clock.Clock
}

// NewMemoryStore constructs an empty in-memory snapshot store stamping
// CreatedAt from c.
func NewMemoryStore(c clock.Clock) *MemoryStore {
	if c == nil {
		c = clock.System()
	}
	return &MemoryStore{
		byID:      make(map[string]*ContextSnapshot),
		bySession: make(map[identity.AgentSessionID][]string),
		clock:     c,
	}
}

// Capture appends a new snapshot.
func (s *MemoryStore) Capture(ctx context.Context, sessionID identity.AgentSessionID, snapshotType Type, priorTurnID *identity.TurnID, refs []ToolCallReference) (*ContextSnapshot, error) {
	snap := &ContextSnapshot{
		SnapshotID:   uuid.NewString(),
		SessionID:    sessionID,
		SnapshotType: snapshotType,
		PriorTurnID:  priorTurnID,
		ToolCallRefs: append([]ToolCallReference(nil), refs...),
		CreatedAt:    s.clock.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[snap.SnapshotID] = snap
	s.bySession[sessionID] = append(s.bySession[sessionID], snap.SnapshotID)
	return snap.Clone(), nil
}

// FindByID returns a clone of the snapshot or ErrSnapshotNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, snapshotID string) (*ContextSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.byID[snapshotID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// FindForSession returns clones of the session's snapshots in creation
// order.
func (s *MemoryStore) FindForSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*ContextSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	out := make([]*ContextSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
