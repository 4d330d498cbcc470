package snapshot

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
)

func storeImpls(t *testing.T, c clock.Clock) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"), c)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(c),
		"sqlite": sqlite,
	}
}

func TestStore_CaptureAndFind(t *testing.T) {
	at := time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC)
	for name, store := range storeImpls(t, clock.NewManual(at)) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sessionID := identity.NewAgentSessionID()
			turn := identity.NewTurnID()
			refs := []ToolCallReference{
				{CallID: "c1", ToolName: "search", MessageID: identity.NewMessageID(), SequenceNumber: 4},
				{CallID: "c2", ToolName: "fetch", MessageID: identity.NewMessageID(), SequenceNumber: 5},
			}

			snap, err := store.Capture(ctx, sessionID, TypeHandoffInitiated, &turn, refs)
			require.NoError(t, err)
			assert.NotEmpty(t, snap.SnapshotID)
			assert.Equal(t, sessionID, snap.SessionID)
			assert.Equal(t, TypeHandoffInitiated, snap.SnapshotType)
			require.NotNil(t, snap.PriorTurnID)
			assert.Equal(t, turn, *snap.PriorTurnID)
			assert.True(t, snap.CreatedAt.Equal(at))

			got, err := store.FindByID(ctx, snap.SnapshotID)
			require.NoError(t, err)
			assert.Equal(t, refs, got.ToolCallRefs)
		})
	}
}

func TestStore_FindByIDNotFound(t *testing.T) {
	for name, store := range storeImpls(t, nil) {
		t.Run(name, func(t *testing.T) {
			_, err := store.FindByID(context.Background(), "missing")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)
		})
	}
}

func TestStore_FindForSessionCreationOrder(t *testing.T) {
	// A fixed clock makes every CreatedAt identical; ordering must come
	// from append order, not timestamps.
	c := clock.NewManual(time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC))
	for name, store := range storeImpls(t, c) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			sessionID := identity.NewAgentSessionID()
			other := identity.NewAgentSessionID()

			var captured []string
			for i := 0; i < 3; i++ {
				snap, err := store.Capture(ctx, sessionID, TypeHandoffInitiated, nil, nil)
				require.NoError(t, err)
				captured = append(captured, snap.SnapshotID)
			}
			_, err := store.Capture(ctx, other, TypeHandoffInitiated, nil, nil)
			require.NoError(t, err)

			snaps, err := store.FindForSession(ctx, sessionID)
			require.NoError(t, err)
			require.Len(t, snaps, 3)
			for i, snap := range snaps {
				assert.Equal(t, captured[i], snap.SnapshotID)
				assert.Nil(t, snap.PriorTurnID)
			}
		})
	}
}

func TestStore_EmptySession(t *testing.T) {
	for name, store := range storeImpls(t, nil) {
		t.Run(name, func(t *testing.T) {
			snaps, err := store.FindForSession(context.Background(), identity.NewAgentSessionID())
			require.NoError(t, err)
			assert.Empty(t, snaps)
		})
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshots.db")
	ctx := context.Background()
	sessionID := identity.NewAgentSessionID()

	store, err := OpenSQLiteStore(path, nil)
	require.NoError(t, err)

	snap, err := store.Capture(ctx, sessionID, TypeHandoffInitiated, nil, []ToolCallReference{
		{CallID: "c1", ToolName: "search", MessageID: identity.NewMessageID(), SequenceNumber: 1},
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.FindByID(ctx, snap.SnapshotID)
	require.NoError(t, err)
	assert.Equal(t, snap.ToolCallRefs, got.ToolCallRefs)
}
