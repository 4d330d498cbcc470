package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/identity"
)

func newTestCachedLog(t *testing.T) *CachedLog {
	t.Helper()
	cached, err := NewCachedLog(NewMemoryLog(), CacheConfig{})
	require.NoError(t, err)
	t.Cleanup(cached.Close)
	return cached
}

func TestCachedLog_ReadThroughAndWriteThrough(t *testing.T) {
	log := newTestCachedLog(t)
	ctx := context.Background()
	conv := identity.NewConversationID()

	msg := newTestMessage(conv, 1)
	require.NoError(t, log.Store(ctx, msg))

	got, err := log.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)

	// Second read may come from the hot tier; it must still be isolated.
	got.Content[0].Text = "mutated"
	again, err := log.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Content[0].Text)
}

func TestCachedLog_PropagatesDuplicates(t *testing.T) {
	log := newTestCachedLog(t)
	ctx := context.Background()
	conv := identity.NewConversationID()

	require.NoError(t, log.Store(ctx, newTestMessage(conv, 1)))

	err := log.Store(ctx, newTestMessage(conv, 1))
	var dupErr *DuplicateSequenceError
	assert.ErrorAs(t, err, &dupErr)
}

func TestCachedLog_MissFallsBack(t *testing.T) {
	backing := NewMemoryLog()
	ctx := context.Background()
	conv := identity.NewConversationID()

	// Seed the backing log directly so the cache has never seen the ID.
	msg := newTestMessage(conv, 1)
	require.NoError(t, backing.Store(ctx, msg))

	cached, err := NewCachedLog(backing, CacheConfig{})
	require.NoError(t, err)
	defer cached.Close()

	got, err := cached.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)

	exists, err := cached.Exists(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = cached.FindByID(ctx, identity.NewMessageID())
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestCachedLog_DelegatesSequencing(t *testing.T) {
	log := newTestCachedLog(t)
	ctx := context.Background()
	conv := identity.NewConversationID()

	for _, seq := range []identity.SequenceNumber{1, 2, 5} {
		require.NoError(t, log.Store(ctx, newTestMessage(conv, seq)))
	}

	next, err := log.NextSequenceNumber(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, identity.SequenceNumber(6), next)

	msgs, err := log.FindByConversation(ctx, conv)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}
