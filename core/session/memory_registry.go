package session

import (
	"context"
	"sort"
	"sync"

	"github.com/leynos/baton/core/identity"
)

// MemoryRegistry is a volatile Registry backed by process-local maps.
// Sessions are cloned on the way in and out.
type MemoryRegistry struct {
	mu             sync.RWMutex
	byID           map[identity.AgentSessionID]*AgentSession
	byConversation map[identity.ConversationID][]identity.AgentSessionID
}

// NewMemoryRegistry constructs an empty in-memory session registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byID:           make(map[identity.AgentSessionID]*AgentSession),
		byConversation: make(map[identity.ConversationID][]identity.AgentSessionID),
	}
}

// Store upserts the session by SessionID.
func (r *MemoryRegistry) Store(ctx context.Context, sess *AgentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[sess.SessionID]; !exists {
		r.byConversation[sess.ConversationID] = append(r.byConversation[sess.ConversationID], sess.SessionID)
	}
	r.byID[sess.SessionID] = sess.Clone()
	return nil
}

// FindByID returns a clone of the session or ErrSessionNotFound.
func (r *MemoryRegistry) FindByID(ctx context.Context, id identity.AgentSessionID) (*AgentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// FindByConversation returns clones of every session for the
// conversation, ordered by creation time (insertion order breaks ties).
func (r *MemoryRegistry) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*AgentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byConversation[conversationID]
	out := make([]*AgentSession, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.byID[id].Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindActiveForConversation returns the conversation's Active session
// or ErrSessionNotFound.
func (r *MemoryRegistry) FindActiveForConversation(ctx context.Context, conversationID identity.ConversationID) (*AgentSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.byConversation[conversationID] {
		if sess := r.byID[id]; sess.State == StateActive {
			return sess.Clone(), nil
		}
	}
	return nil, ErrSessionNotFound
}

var _ Registry = (*MemoryRegistry)(nil)
