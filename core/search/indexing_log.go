package search

import (
	"context"
	"log/slog"

	"github.com/leynos/baton/core/conversation"
	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Indexing Message Log Decorator
// =============================================================================

// IndexingLog wraps a MessageLog and feeds every stored message into a
// MessageIndex. Indexing is best-effort: a failed index write is logged
// and does not fail the append, so the log stays the source of truth
// and the index can always be rebuilt from it.
type IndexingLog struct {
	inner  conversation.MessageLog
	index  *MessageIndex
	logger *slog.Logger
}

// NewIndexingLog wraps inner with index. A nil logger falls back to
// slog.Default.
func NewIndexingLog(inner conversation.MessageLog, index *MessageIndex, logger *slog.Logger) *IndexingLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexingLog{inner: inner, index: index, logger: logger}
}

// NextSequenceNumber delegates to the wrapped log.
func (l *IndexingLog) NextSequenceNumber(ctx context.Context, conversationID identity.ConversationID) (identity.SequenceNumber, error) {
	return l.inner.NextSequenceNumber(ctx, conversationID)
}

// Store appends the message, then indexes it.
func (l *IndexingLog) Store(ctx context.Context, msg *conversation.Message) error {
	if err := l.inner.Store(ctx, msg); err != nil {
		return err
	}
	if err := l.index.IndexMessage(ctx, msg); err != nil {
		l.logger.Warn("message stored but not indexed",
			"message_id", msg.ID,
			"conversation_id", msg.ConversationID,
			"error", err)
	}
	return nil
}

// FindByID delegates to the wrapped log.
func (l *IndexingLog) FindByID(ctx context.Context, id identity.MessageID) (*conversation.Message, error) {
	return l.inner.FindByID(ctx, id)
}

// Exists delegates to the wrapped log.
func (l *IndexingLog) Exists(ctx context.Context, id identity.MessageID) (bool, error) {
	return l.inner.Exists(ctx, id)
}

// FindByConversation delegates to the wrapped log.
func (l *IndexingLog) FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*conversation.Message, error) {
	return l.inner.FindByConversation(ctx, conversationID)
}

// Rebuild reindexes every message of the given conversations. Used
// after index loss; the log remains authoritative.
func (l *IndexingLog) Rebuild(ctx context.Context, conversationIDs ...identity.ConversationID) error {
	for _, convID := range conversationIDs {
		msgs, err := l.inner.FindByConversation(ctx, convID)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := l.index.IndexMessage(ctx, msg); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ conversation.MessageLog = (*IndexingLog)(nil)
