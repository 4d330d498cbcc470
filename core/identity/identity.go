// Package identity defines the opaque identifier types shared by the
// conversation, session, snapshot and handoff stores. Identifiers are
// 128-bit random tokens compared by value; they carry no ordering or
// embedded structure.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// ConversationID identifies a conversation thread.
type ConversationID string

// MessageID identifies a single message, unique across all conversations.
type MessageID string

// AgentSessionID identifies one agent's participation in a conversation.
type AgentSessionID string

// HandoffID identifies a control transfer between agent sessions.
type HandoffID string

// TurnID identifies a caller-defined unit of agent work. Turns are minted
// by callers; the engine only anchors snapshots to them.
type TurnID string

// NewConversationID returns a fresh random ConversationID.
func NewConversationID() ConversationID { return ConversationID(uuid.NewString()) }

// NewMessageID returns a fresh random MessageID.
func NewMessageID() MessageID { return MessageID(uuid.NewString()) }

// NewAgentSessionID returns a fresh random AgentSessionID.
func NewAgentSessionID() AgentSessionID { return AgentSessionID(uuid.NewString()) }

// NewHandoffID returns a fresh random HandoffID.
func NewHandoffID() HandoffID { return HandoffID(uuid.NewString()) }

// NewTurnID returns a fresh random TurnID.
func NewTurnID() TurnID { return TurnID(uuid.NewString()) }

// ParseConversationID validates s as a conversation identifier.
func ParseConversationID(s string) (ConversationID, error) {
	if err := validateToken(s); err != nil {
		return "", fmt.Errorf("conversation id: %w", err)
	}
	return ConversationID(s), nil
}

// ParseMessageID validates s as a message identifier.
func ParseMessageID(s string) (MessageID, error) {
	if err := validateToken(s); err != nil {
		return "", fmt.Errorf("message id: %w", err)
	}
	return MessageID(s), nil
}

// ParseAgentSessionID validates s as an agent session identifier.
func ParseAgentSessionID(s string) (AgentSessionID, error) {
	if err := validateToken(s); err != nil {
		return "", fmt.Errorf("agent session id: %w", err)
	}
	return AgentSessionID(s), nil
}

// ParseHandoffID validates s as a handoff identifier.
func ParseHandoffID(s string) (HandoffID, error) {
	if err := validateToken(s); err != nil {
		return "", fmt.Errorf("handoff id: %w", err)
	}
	return HandoffID(s), nil
}

func validateToken(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return fmt.Errorf("not a valid token: %w", err)
	}
	return nil
}

// SequenceNumber orders messages within a conversation. Valid values are
// strictly positive; zero is the unset sentinel.
type SequenceNumber int64

// Valid reports whether the sequence number is usable for storage.
func (n SequenceNumber) Valid() bool { return n > 0 }
