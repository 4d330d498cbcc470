package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Message Log Contract
// =============================================================================
//
// The message log is an append-only store. It owns message identity (IDs
// are globally unique) and sequence placement (sequence numbers are unique
// per conversation). It never mutates a stored message.
//
// NextSequenceNumber followed by Store is deliberately check-then-act:
// two callers racing on the same conversation can read the same next
// number, and exactly one Store will fail with a DuplicateSequenceError.
// Callers retry with a freshly read number; the store's uniqueness
// guarantee is the sole source of truth.

// ErrMessageNotFound indicates no message exists with the given ID.
var ErrMessageNotFound = errors.New("message not found")

// DuplicateMessageError indicates a message ID is already stored.
type DuplicateMessageError struct {
	MessageID identity.MessageID
}

func (e *DuplicateMessageError) Error() string {
	return fmt.Sprintf("duplicate message %s", e.MessageID)
}

// DuplicateSequenceError indicates the (conversation, sequence) slot is
// already taken. Recoverable: re-read the next sequence number and retry.
type DuplicateSequenceError struct {
	ConversationID identity.ConversationID
	SequenceNumber identity.SequenceNumber
}

func (e *DuplicateSequenceError) Error() string {
	return fmt.Sprintf("duplicate sequence %d in conversation %s", e.SequenceNumber, e.ConversationID)
}

// MessageLog is the append-only conversation message store.
type MessageLog interface {
	// NextSequenceNumber returns 1 for an empty conversation, else
	// max(existing)+1. Advisory only; Store enforces uniqueness.
	NextSequenceNumber(ctx context.Context, conversationID identity.ConversationID) (identity.SequenceNumber, error)

	// Store persists a message exactly once. Fails with
	// *DuplicateMessageError or *DuplicateSequenceError; both checks are
	// atomic with the insert.
	Store(ctx context.Context, msg *Message) error

	// FindByID returns the message or ErrMessageNotFound.
	FindByID(ctx context.Context, id identity.MessageID) (*Message, error)

	// Exists reports whether a message with the ID is stored.
	Exists(ctx context.Context, id identity.MessageID) (bool, error)

	// FindByConversation returns all messages for the conversation in
	// ascending sequence order.
	FindByConversation(ctx context.Context, conversationID identity.ConversationID) ([]*Message, error)
}
