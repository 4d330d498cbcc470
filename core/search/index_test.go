package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/conversation"
	"github.com/leynos/baton/core/identity"
)

func newTestIndex(t *testing.T) *MessageIndex {
	t.Helper()
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func buildMessage(t *testing.T, v *conversation.Validator, conv identity.ConversationID, seq identity.SequenceNumber, text string) *conversation.Message {
	t.Helper()
	msg, err := v.Build(conv, conversation.RoleUser, seq, []conversation.ContentPart{conversation.TextPart(text)}, nil)
	require.NoError(t, err)
	return msg
}

func TestMessageIndex_SearchFindsTextContent(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)))
	conv := identity.NewConversationID()

	wanted := buildMessage(t, v, conv, 1, "please review the websocket reconnect logic")
	other := buildMessage(t, v, conv, 2, "unrelated small talk about the weather")
	require.NoError(t, idx.IndexMessage(ctx, wanted))
	require.NoError(t, idx.IndexMessage(ctx, other))

	hits, err := idx.Search(ctx, "websocket reconnect", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, wanted.ID, hits[0].MessageID)
	assert.Equal(t, conv, hits[0].ConversationID)
}

func TestMessageIndex_SearchConversationScopesResults(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	convA := identity.NewConversationID()
	convB := identity.NewConversationID()

	inA := buildMessage(t, v, convA, 1, "deploy pipeline failing on staging")
	inB := buildMessage(t, v, convB, 1, "deploy pipeline failing on production")
	require.NoError(t, idx.IndexMessage(ctx, inA))
	require.NoError(t, idx.IndexMessage(ctx, inB))

	hits, err := idx.SearchConversation(ctx, convA, "deploy pipeline", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, inA.ID, hits[0].MessageID)
}

func TestMessageIndex_SearchEmptyQueryMatchesAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	conv := identity.NewConversationID()

	for i, text := range []string{"first", "second", "third"} {
		msg := buildMessage(t, v, conv, identity.SequenceNumber(i+1), text)
		require.NoError(t, idx.IndexMessage(ctx, msg))
	}

	hits, err := idx.SearchConversation(ctx, conv, "", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
}

func TestMessageIndex_Remove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	conv := identity.NewConversationID()

	msg := buildMessage(t, v, conv, 1, "temporary note about caching")
	require.NoError(t, idx.IndexMessage(ctx, msg))
	require.NoError(t, idx.Remove(ctx, msg.ID))

	hits, err := idx.Search(ctx, "caching", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMessageIndex_ClosedIndexRefusesWrites(t *testing.T) {
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Close())

	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	msg := buildMessage(t, v, identity.NewConversationID(), 1, "anything")
	assert.ErrorIs(t, idx.IndexMessage(context.Background(), msg), ErrIndexClosed)

	_, err = idx.Search(context.Background(), "anything", 10)
	assert.ErrorIs(t, err, ErrIndexClosed)
}

func TestIndexingLog_StoreIndexesMessage(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	log := NewIndexingLog(conversation.NewMemoryLog(), idx, nil)
	conv := identity.NewConversationID()

	seq, err := log.NextSequenceNumber(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, identity.SequenceNumber(1), seq)

	msg := buildMessage(t, v, conv, seq, "summarize the incident retrospective")
	require.NoError(t, log.Store(ctx, msg))

	// The append is visible through the log contract.
	got, err := log.FindByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)

	ok, err := log.Exists(ctx, msg.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// And searchable through the index.
	hits, err := idx.Search(ctx, "incident retrospective", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, msg.ID, hits[0].MessageID)
}

func TestIndexingLog_StoreSurvivesIndexFailure(t *testing.T) {
	idx, err := NewMemoryIndex()
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	log := NewIndexingLog(conversation.NewMemoryLog(), idx, nil)
	conv := identity.NewConversationID()

	msg := buildMessage(t, v, conv, 1, "stored even when the index is down")
	require.NoError(t, log.Store(ctx, msg))

	got, err := log.FindByConversation(ctx, conv)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIndexingLog_Rebuild(t *testing.T) {
	ctx := context.Background()
	v := conversation.NewValidator(clock.NewManual(time.Now().UTC()))
	inner := conversation.NewMemoryLog()
	conv := identity.NewConversationID()

	for i, text := range []string{"alpha release notes", "beta release notes"} {
		msg := buildMessage(t, v, conv, identity.SequenceNumber(i+1), text)
		require.NoError(t, inner.Store(ctx, msg))
	}

	// A fresh index knows nothing until rebuilt from the log.
	idx := newTestIndex(t)
	log := NewIndexingLog(inner, idx, nil)
	require.NoError(t, log.Rebuild(ctx, conv))

	hits, err := idx.Search(ctx, "release notes", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}
