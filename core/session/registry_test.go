package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/identity"
)

// Both registry implementations must satisfy the same contract; each test
// runs against both.
func registryImpls(t *testing.T) map[string]Registry {
	t.Helper()
	sqlite, err := OpenSQLiteRegistry(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Registry{
		"memory": NewMemoryRegistry(),
		"sqlite": sqlite,
	}
}

func TestRegistry_StoreAndFind(t *testing.T) {
	for name, reg := range registryImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := NewSession(identity.NewConversationID(), "agent-1", 1, nil, testCreatedAt)
			require.NoError(t, reg.Store(ctx, sess))

			got, err := reg.FindByID(ctx, sess.SessionID)
			require.NoError(t, err)
			assert.Equal(t, sess.SessionID, got.SessionID)
			assert.Equal(t, sess.ConversationID, got.ConversationID)
			assert.Equal(t, "agent-1", got.AgentBackend)
			assert.Equal(t, StateActive, got.State)
			assert.True(t, got.CreatedAt.Equal(testCreatedAt))
		})
	}
}

func TestRegistry_FindByIDNotFound(t *testing.T) {
	for name, reg := range registryImpls(t) {
		t.Run(name, func(t *testing.T) {
			_, err := reg.FindByID(context.Background(), identity.NewAgentSessionID())
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}

func TestRegistry_UpsertPersistsTransition(t *testing.T) {
	for name, reg := range registryImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sess := NewSession(identity.NewConversationID(), "agent-1", 1, nil, testCreatedAt)
			require.NoError(t, reg.Store(ctx, sess))

			handoff := identity.NewHandoffID()
			require.NoError(t, sess.MarkHandedOff(handoff))
			require.NoError(t, reg.Store(ctx, sess))

			got, err := reg.FindByID(ctx, sess.SessionID)
			require.NoError(t, err)
			assert.Equal(t, StateHandedOff, got.State)
			require.NotNil(t, got.TerminatedByHandoff)
			assert.Equal(t, handoff, *got.TerminatedByHandoff)
		})
	}
}

func TestRegistry_FindByConversation(t *testing.T) {
	for name, reg := range registryImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := identity.NewConversationID()

			first := NewSession(conv, "agent-1", 1, nil, testCreatedAt)
			require.NoError(t, reg.Store(ctx, first))
			require.NoError(t, first.MarkHandedOff(identity.NewHandoffID()))
			require.NoError(t, reg.Store(ctx, first))

			second := NewSession(conv, "agent-2", 6, nil, testCreatedAt.Add(time.Minute))
			require.NoError(t, reg.Store(ctx, second))

			other := NewSession(identity.NewConversationID(), "agent-3", 1, nil, testCreatedAt)
			require.NoError(t, reg.Store(ctx, other))

			sessions, err := reg.FindByConversation(ctx, conv)
			require.NoError(t, err)
			require.Len(t, sessions, 2)
			assert.Equal(t, first.SessionID, sessions[0].SessionID)
			assert.Equal(t, second.SessionID, sessions[1].SessionID)
		})
	}
}

func TestRegistry_FindActiveForConversation(t *testing.T) {
	for name, reg := range registryImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			conv := identity.NewConversationID()

			_, err := reg.FindActiveForConversation(ctx, conv)
			assert.ErrorIs(t, err, ErrSessionNotFound)

			sess := NewSession(conv, "agent-1", 1, nil, testCreatedAt)
			require.NoError(t, reg.Store(ctx, sess))

			active, err := reg.FindActiveForConversation(ctx, conv)
			require.NoError(t, err)
			assert.Equal(t, sess.SessionID, active.SessionID)

			require.NoError(t, sess.MarkHandedOff(identity.NewHandoffID()))
			require.NoError(t, reg.Store(ctx, sess))

			_, err = reg.FindActiveForConversation(ctx, conv)
			assert.ErrorIs(t, err, ErrSessionNotFound)
		})
	}
}
