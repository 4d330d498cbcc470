package handoff

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/identity"
)

func storeImpls(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "handoffs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_StoreAndFind(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			reason := "escalation"
			h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", &reason, testCreatedAt)
			require.NoError(t, store.Store(ctx, h))

			got, err := store.FindByID(ctx, h.HandoffID)
			require.NoError(t, err)
			assert.Equal(t, h.HandoffID, got.HandoffID)
			assert.Equal(t, StatusInitiated, got.Status)
			require.NotNil(t, got.Reason)
			assert.Equal(t, reason, *got.Reason)
			assert.Nil(t, got.TargetSessionID)
			assert.Nil(t, got.CompletedAt)
			assert.True(t, got.CreatedAt.Equal(testCreatedAt))
		})
	}
}

func TestStore_FindByIDNotFound(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.FindByID(context.Background(), identity.NewHandoffID())
			assert.ErrorIs(t, err, ErrHandoffNotFound)
		})
	}
}

func TestStore_UpsertPersistsTransition(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", nil, testCreatedAt)
			require.NoError(t, store.Store(ctx, h))

			target := identity.NewAgentSessionID()
			completedAt := testCreatedAt.Add(2 * time.Minute)
			require.NoError(t, h.MarkCompleted(target, completedAt))
			require.NoError(t, store.Store(ctx, h))

			got, err := store.FindByID(ctx, h.HandoffID)
			require.NoError(t, err)
			assert.Equal(t, StatusCompleted, got.Status)
			require.NotNil(t, got.TargetSessionID)
			assert.Equal(t, target, *got.TargetSessionID)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, got.CompletedAt.Equal(completedAt))
		})
	}
}

func TestStore_FindBySourceSession(t *testing.T) {
	for name, store := range storeImpls(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			source := identity.NewAgentSessionID()

			first := NewHandoff(source, "agent-1", "agent-2", nil, testCreatedAt)
			require.NoError(t, store.Store(ctx, first))
			require.NoError(t, first.MarkCancelled(nil))
			require.NoError(t, store.Store(ctx, first))

			second := NewHandoff(source, "agent-1", "agent-3", nil, testCreatedAt.Add(time.Minute))
			require.NoError(t, store.Store(ctx, second))

			unrelated := NewHandoff(identity.NewAgentSessionID(), "agent-9", "agent-2", nil, testCreatedAt)
			require.NoError(t, store.Store(ctx, unrelated))

			handoffs, err := store.FindBySourceSession(ctx, source)
			require.NoError(t, err)
			require.Len(t, handoffs, 2)
			assert.Equal(t, first.HandoffID, handoffs[0].HandoffID)
			assert.Equal(t, StatusCancelled, handoffs[0].Status)
			assert.Equal(t, second.HandoffID, handoffs[1].HandoffID)
		})
	}
}
