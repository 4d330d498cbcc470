// Package session tracks each agent's participation in a conversation:
// the AgentSession record, its Active/HandedOff state machine, and the
// registry contract the handoff coordinator writes through.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Agent Session State Machine
// =============================================================================

// State is the lifecycle state of an agent session.
type State string

const (
	// StateActive indicates the session currently owns the conversation.
	StateActive State = "active"

	// StateHandedOff indicates the session surrendered the conversation
	// via a handoff. Terminal for the session instance; a conversation
	// continues through a new session, except where a cancelled handoff
	// reverts its source.
	StateHandedOff State = "handed_off"
)

// Valid reports whether the state is a known value.
func (s State) Valid() bool {
	return s == StateActive || s == StateHandedOff
}

// ErrNotActive indicates a transition that requires an Active session.
var ErrNotActive = errors.New("agent session is not active")

// ErrNotHandedOff indicates a revert on a session that was never handed off.
var ErrNotHandedOff = errors.New("agent session is not handed off")

// AgentSession is one agent's tenure in a conversation.
type AgentSession struct {
	SessionID           identity.AgentSessionID `json:"session_id"`
	ConversationID      identity.ConversationID `json:"conversation_id"`
	AgentBackend        string                  `json:"agent_backend"`
	State               State                   `json:"state"`
	StartSequence       identity.SequenceNumber `json:"start_sequence"`
	InitiatedByHandoff  *identity.HandoffID     `json:"initiated_by_handoff,omitempty"`
	TerminatedByHandoff *identity.HandoffID     `json:"terminated_by_handoff,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
}

// NewSession creates an Active session. initiatedBy is nil for a
// conversation's first session and set when the session is a handoff
// successor.
func NewSession(conversationID identity.ConversationID, agentBackend string, startSequence identity.SequenceNumber, initiatedBy *identity.HandoffID, createdAt time.Time) *AgentSession {
	return &AgentSession{
		SessionID:          identity.NewAgentSessionID(),
		ConversationID:     conversationID,
		AgentBackend:       agentBackend,
		State:              StateActive,
		StartSequence:      startSequence,
		InitiatedByHandoff: initiatedBy,
		CreatedAt:          createdAt,
	}
}

// MarkHandedOff transitions Active -> HandedOff, recording the handoff
// that terminated the session. Rejects any other starting state.
func (s *AgentSession) MarkHandedOff(handoffID identity.HandoffID) error {
	if s.State != StateActive {
		return fmt.Errorf("%w: session %s is %s", ErrNotActive, s.SessionID, s.State)
	}
	s.State = StateHandedOff
	s.TerminatedByHandoff = &handoffID
	return nil
}

// Reactivate reverts HandedOff -> Active and clears the terminating
// handoff. Only the coordinator's cancel path uses this.
func (s *AgentSession) Reactivate() error {
	if s.State != StateHandedOff {
		return fmt.Errorf("%w: session %s is %s", ErrNotHandedOff, s.SessionID, s.State)
	}
	s.State = StateActive
	s.TerminatedByHandoff = nil
	return nil
}

// Clone returns a copy so registry callers cannot alias stored state.
func (s *AgentSession) Clone() *AgentSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.InitiatedByHandoff != nil {
		v := *s.InitiatedByHandoff
		out.InitiatedByHandoff = &v
	}
	if s.TerminatedByHandoff != nil {
		v := *s.TerminatedByHandoff
		out.TerminatedByHandoff = &v
	}
	return &out
}
