// Package handoff implements the control-transfer protocol between agent
// sessions: the Handoff record and its status machine, the record store
// contracts, and the Coordinator that drives multi-store handoff
// operations without a cross-store transaction.
package handoff

import (
	"errors"
	"fmt"
	"time"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Handoff Record & Status Machine
// =============================================================================

// Status is the lifecycle state of a handoff.
type Status string

const (
	// StatusInitiated is the only non-terminal status. At most one
	// Initiated handoff exists per conversation.
	StatusInitiated Status = "initiated"

	// StatusCompleted is terminal: control passed to the target session.
	StatusCompleted Status = "completed"

	// StatusCancelled is terminal: the source session was restored.
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is a known value.
func (s Status) Valid() bool {
	switch s {
	case StatusInitiated, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transition.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var (
	// ErrHandoffNotFound indicates no handoff exists with the given ID.
	ErrHandoffNotFound = errors.New("handoff not found")

	// ErrInvalidTransition indicates a complete or cancel against a
	// handoff that is no longer Initiated.
	ErrInvalidTransition = errors.New("invalid handoff status transition")

	// ErrHandoffAlreadyPending indicates the conversation already has an
	// Initiated handoff. Recoverable: resolve the pending handoff first.
	ErrHandoffAlreadyPending = errors.New("conversation already has a pending handoff")

	// ErrSessionNotActive indicates initiate was called against a
	// session that no longer owns its conversation.
	ErrSessionNotActive = errors.New("source session is not active")
)

// Handoff records one control transfer between agent sessions.
type Handoff struct {
	HandoffID       identity.HandoffID       `json:"handoff_id"`
	SourceSessionID identity.AgentSessionID  `json:"source_session_id"`
	SourceAgent     string                   `json:"source_agent"`
	TargetAgent     string                   `json:"target_agent"`
	Status          Status                   `json:"status"`
	Reason          *string                  `json:"reason,omitempty"`
	TargetSessionID *identity.AgentSessionID `json:"target_session_id,omitempty"`
	CompletedAt     *time.Time               `json:"completed_at,omitempty"`
	CreatedAt       time.Time                `json:"created_at"`
}

// NewHandoff creates an Initiated handoff from the source session.
func NewHandoff(sourceSessionID identity.AgentSessionID, sourceAgent, targetAgent string, reason *string, createdAt time.Time) *Handoff {
	return &Handoff{
		HandoffID:       identity.NewHandoffID(),
		SourceSessionID: sourceSessionID,
		SourceAgent:     sourceAgent,
		TargetAgent:     targetAgent,
		Status:          StatusInitiated,
		Reason:          reason,
		CreatedAt:       createdAt,
	}
}

// MarkCompleted transitions Initiated -> Completed, binding the target
// session and completion time.
func (h *Handoff) MarkCompleted(targetSessionID identity.AgentSessionID, at time.Time) error {
	if h.Status != StatusInitiated {
		return fmt.Errorf("%w: handoff %s is %s", ErrInvalidTransition, h.HandoffID, h.Status)
	}
	h.Status = StatusCompleted
	h.TargetSessionID = &targetSessionID
	h.CompletedAt = &at
	return nil
}

// MarkCancelled transitions Initiated -> Cancelled. A non-nil reason
// replaces the one recorded at initiation.
func (h *Handoff) MarkCancelled(reason *string) error {
	if h.Status != StatusInitiated {
		return fmt.Errorf("%w: handoff %s is %s", ErrInvalidTransition, h.HandoffID, h.Status)
	}
	h.Status = StatusCancelled
	if reason != nil {
		h.Reason = reason
	}
	return nil
}

// Clone returns a deep copy so store callers cannot alias stored state.
func (h *Handoff) Clone() *Handoff {
	if h == nil {
		return nil
	}
	out := *h
	if h.Reason != nil {
		v := *h.Reason
		out.Reason = &v
	}
	if h.TargetSessionID != nil {
		v := *h.TargetSessionID
		out.TargetSessionID = &v
	}
	if h.CompletedAt != nil {
		v := *h.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}
