// Package snapshot captures point-in-time continuation state at handoff
// boundaries: the pending turn and the tool calls still open when an
// agent surrendered a conversation. Snapshots are immutable history;
// nothing in the system mutates or deletes one.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/leynos/baton/core/identity"
)

// Type classifies why a snapshot was captured.
type Type string

const (
	// TypeHandoffInitiated marks the snapshot the coordinator captures
	// when a handoff is initiated.
	TypeHandoffInitiated Type = "handoff_initiated"
)

// ToolCallReference locates a tool call that was still open at the
// snapshot point.
type ToolCallReference struct {
	CallID         string                  `json:"call_id"`
	ToolName       string                  `json:"tool_name"`
	MessageID      identity.MessageID      `json:"message_id"`
	SequenceNumber identity.SequenceNumber `json:"sequence_number"`
}

// ContextSnapshot is a captured continuation record for one session.
type ContextSnapshot struct {
	SnapshotID   string                  `json:"snapshot_id"`
	SessionID    identity.AgentSessionID `json:"session_id"`
	SnapshotType Type                    `json:"snapshot_type"`
	PriorTurnID  *identity.TurnID        `json:"prior_turn_id,omitempty"`
	ToolCallRefs []ToolCallReference     `json:"tool_call_refs,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

// Clone returns a deep copy.
func (s *ContextSnapshot) Clone() *ContextSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.PriorTurnID != nil {
		v := *s.PriorTurnID
		out.PriorTurnID = &v
	}
	out.ToolCallRefs = append([]ToolCallReference(nil), s.ToolCallRefs...)
	return &out
}

// ErrSnapshotNotFound indicates no snapshot exists with the given ID.
var ErrSnapshotNotFound = errors.New("context snapshot not found")

// Store is the append-only snapshot store. Capture never fails except on
// storage error; there is no mutation or deletion operation.
type Store interface {
	// Capture persists a new snapshot and returns it.
	Capture(ctx context.Context, sessionID identity.AgentSessionID, snapshotType Type, priorTurnID *identity.TurnID, refs []ToolCallReference) (*ContextSnapshot, error)

	// FindByID returns the snapshot or ErrSnapshotNotFound.
	FindByID(ctx context.Context, snapshotID string) (*ContextSnapshot, error)

	// FindForSession returns the session's snapshots in creation order.
	FindForSession(ctx context.Context, sessionID identity.AgentSessionID) ([]*ContextSnapshot, error)
}
