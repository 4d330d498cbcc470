package session

import (
	"context"
	"errors"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Registry Contract
// =============================================================================

// ErrSessionNotFound indicates no session exists with the given ID.
var ErrSessionNotFound = errors.New("agent session not found")

// Registry stores agent sessions. Store is an upsert: it both creates
// sessions and persists state transitions. Sessions are never deleted.
//
// The at-most-one-Active-per-conversation invariant is enforced by the
// handoff coordinator's serialized read-before-write validation, not by
// the registry itself; FindActiveForConversation must simply reflect
// what is stored.
type Registry interface {
	// Store upserts the session by SessionID.
	Store(ctx context.Context, sess *AgentSession) error

	// FindByID returns the session or ErrSessionNotFound.
	FindByID(ctx context.Context, id identity.AgentSessionID) (*AgentSession, error)

	// FindByConversation returns every session for the conversation,
	// any state, ordered by creation time.
	FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*AgentSession, error)

	// FindActiveForConversation returns the single Active session, or
	// ErrSessionNotFound when the conversation has none.
	FindActiveForConversation(ctx context.Context, conversationID identity.ConversationID) (*AgentSession, error)
}
