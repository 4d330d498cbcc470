package handoff

import (
	"context"
	"sync"

	"github.com/leynos/baton/core/identity"
)

// MemoryStore is a volatile handoff record store backed by process-local
// maps. Records are cloned on the way in and out.
type MemoryStore struct {
	mu       sync.RWMutex
	byID     map[identity.HandoffID]*Handoff
	bySource map[identity.AgentSessionID][]identity.HandoffID
}

// NewMemoryStore constructs an empty in-memory handoff store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:     make(map[identity.HandoffID]*Handoff),
		bySource: make(map[identity.AgentSessionID][]identity.HandoffID),
	}
}

// Store upserts the handoff by HandoffID.
func (s *MemoryStore) Store(ctx context.Context, h *Handoff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[h.HandoffID]; !exists {
		s.bySource[h.SourceSessionID] = append(s.bySource[h.SourceSessionID], h.HandoffID)
	}
	s.byID[h.HandoffID] = h.Clone()
	return nil
}

// FindByID returns a clone of the handoff or ErrHandoffNotFound.
func (s *MemoryStore) FindByID(ctx context.Context, id identity.HandoffID) (*Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.byID[id]
	if !ok {
		return nil, ErrHandoffNotFound
	}
	return h.Clone(), nil
}

// FindBySourceSession returns clones of the session's handoffs in
// creation order.
func (s *MemoryStore) FindBySourceSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*Handoff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySource[sessionID]
	out := make([]*Handoff, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id].Clone())
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
