package handoff

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
	"github.com/leynos/baton/core/session"
	"github.com/leynos/baton/core/snapshot"
)

// =============================================================================
// Handoff Coordinator
// =============================================================================
//
// The Coordinator is the only writer that touches more than one store per
// operation. There is no cross-store transaction: each step is atomic at
// its own store, and the write order inside Initiate is fixed as
// record -> snapshot -> session so a failure mid-sequence leaves a
// well-defined partial state. A handoff record whose source session is
// still Active marks an abandoned initiation; it can be cancelled and
// retried without violating any single store's invariants.
//
// The per-conversation exclusivity invariants (one Active session, one
// Initiated handoff) are upheld by read-before-write validation under a
// per-conversation mutex held for the duration of the operation.

// CoordinatorConfig carries the coordinator's injected collaborators.
// Zero fields fall back to the system clock and the default logger.
type CoordinatorConfig struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// Coordinator orchestrates handoffs across the session registry, the
// handoff record store and the context snapshot store.
type Coordinator struct {
	sessions  session.Registry
	handoffs  Store
	snapshots snapshot.Store
	clock     clock.Clock
	logger    *slog.Logger
	locks     *conversationLocks
}

// NewCoordinator wires a coordinator over the three stores.
func NewCoordinator(sessions session.Registry, handoffs Store, snapshots snapshot.Store, cfg CoordinatorConfig) *Coordinator {
	if cfg.Clock == nil {
		cfg.Clock = clock.System()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		sessions:  sessions,
		handoffs:  handoffs,
		snapshots: snapshots,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		locks:     newConversationLocks(),
	}
}

// InitiateParams are the inputs to Initiate. OpenToolCalls is the
// caller-supplied set of tool calls still outstanding at the handoff
// point; the coordinator records them verbatim in the snapshot.
type InitiateParams struct {
	SourceSessionID identity.AgentSessionID
	TargetAgent     string
	TurnID          identity.TurnID
	StartSequence   identity.SequenceNumber
	Reason          *string
	OpenToolCalls   []snapshot.ToolCallReference
}

// Initiate starts a handoff away from an active source session.
//
// Write order is fixed: the handoff record is persisted first, then the
// context snapshot, and only then is the source session marked
// HandedOff. Fails with session.ErrSessionNotFound,
// ErrSessionNotActive or ErrHandoffAlreadyPending.
func (c *Coordinator) Initiate(ctx context.Context, p InitiateParams) (*Handoff, error) {
	if !p.StartSequence.Valid() {
		return nil, fmt.Errorf("initiate: start sequence %d is not positive", p.StartSequence)
	}

	src, err := c.sessions.FindByID(ctx, p.SourceSessionID)
	if err != nil {
		return nil, err
	}

	c.locks.lock(src.ConversationID)
	defer c.locks.unlock(src.ConversationID)

	// Re-read under the lock; the state may have moved while we raced
	// another coordinator call for this conversation.
	src, err = c.sessions.FindByID(ctx, p.SourceSessionID)
	if err != nil {
		return nil, err
	}
	if src.State != session.StateActive {
		return nil, fmt.Errorf("%w: session %s is %s", ErrSessionNotActive, src.SessionID, src.State)
	}

	pending, err := c.pendingForConversation(ctx, src.ConversationID)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, fmt.Errorf("%w: handoff %s", ErrHandoffAlreadyPending, pending.HandoffID)
	}

	h := NewHandoff(src.SessionID, src.AgentBackend, p.TargetAgent, p.Reason, c.clock.Now())
	if err := c.handoffs.Store(ctx, h); err != nil {
		return nil, fmt.Errorf("initiate: failed to persist handoff record: %w", err)
	}

	turnID := p.TurnID
	if _, err := c.snapshots.Capture(ctx, src.SessionID, snapshot.TypeHandoffInitiated, &turnID, p.OpenToolCalls); err != nil {
		// The handoff record exists but the source session stays
		// Active; callers see an abandoned initiation they can cancel.
		c.logger.Warn("handoff snapshot capture failed",
			"handoff_id", h.HandoffID, "session_id", src.SessionID, "error", err)
		return nil, fmt.Errorf("initiate: failed to capture snapshot: %w", err)
	}

	if err := src.MarkHandedOff(h.HandoffID); err != nil {
		return nil, err
	}
	if err := c.sessions.Store(ctx, src); err != nil {
		c.logger.Warn("handoff source transition not persisted",
			"handoff_id", h.HandoffID, "session_id", src.SessionID, "error", err)
		return nil, fmt.Errorf("initiate: failed to persist session transition: %w", err)
	}

	c.logger.Info("handoff initiated",
		"handoff_id", h.HandoffID,
		"conversation_id", src.ConversationID,
		"source_agent", h.SourceAgent,
		"target_agent", h.TargetAgent)
	return h, nil
}

// CreateTargetSession creates and stores the successor Active session
// for a handoff. It does not validate the handoff's status; callers
// sequence it after Initiate.
func (c *Coordinator) CreateTargetSession(ctx context.Context, conversationID identity.ConversationID, targetAgent string, startSequence identity.SequenceNumber, handoffID identity.HandoffID) (*session.AgentSession, error) {
	sess := session.NewSession(conversationID, targetAgent, startSequence, &handoffID, c.clock.Now())
	if err := c.sessions.Store(ctx, sess); err != nil {
		return nil, fmt.Errorf("create target session: %w", err)
	}
	c.logger.Info("handoff target session created",
		"handoff_id", handoffID,
		"conversation_id", conversationID,
		"session_id", sess.SessionID,
		"agent_backend", targetAgent)
	return sess, nil
}

// Complete finishes a handoff, binding its target session. The
// startSequence is validated but not stored here; the target session
// created for this handoff already carries it. Fails with
// ErrHandoffNotFound or ErrInvalidTransition.
func (c *Coordinator) Complete(ctx context.Context, handoffID identity.HandoffID, targetSessionID identity.AgentSessionID, startSequence identity.SequenceNumber) (*Handoff, error) {
	if !startSequence.Valid() {
		return nil, fmt.Errorf("complete: start sequence %d is not positive", startSequence)
	}

	conversationID, err := c.conversationForHandoff(ctx, handoffID)
	if err != nil {
		return nil, err
	}

	c.locks.lock(conversationID)
	defer c.locks.unlock(conversationID)

	h, err := c.handoffs.FindByID(ctx, handoffID)
	if err != nil {
		return nil, err
	}
	if err := h.MarkCompleted(targetSessionID, c.clock.Now()); err != nil {
		return nil, err
	}
	if err := c.handoffs.Store(ctx, h); err != nil {
		return nil, fmt.Errorf("complete: failed to persist handoff: %w", err)
	}

	c.logger.Info("handoff completed",
		"handoff_id", h.HandoffID,
		"conversation_id", conversationID,
		"target_session_id", targetSessionID)
	return h, nil
}

// Cancel aborts a pending handoff and restores its source session to
// Active so the conversation continues under the original agent. Fails
// with ErrHandoffNotFound or ErrInvalidTransition.
func (c *Coordinator) Cancel(ctx context.Context, handoffID identity.HandoffID, reason *string) (*Handoff, error) {
	conversationID, err := c.conversationForHandoff(ctx, handoffID)
	if err != nil {
		return nil, err
	}

	c.locks.lock(conversationID)
	defer c.locks.unlock(conversationID)

	h, err := c.handoffs.FindByID(ctx, handoffID)
	if err != nil {
		return nil, err
	}
	if err := h.MarkCancelled(reason); err != nil {
		return nil, err
	}
	if err := c.handoffs.Store(ctx, h); err != nil {
		return nil, fmt.Errorf("cancel: failed to persist handoff: %w", err)
	}

	src, err := c.sessions.FindByID(ctx, h.SourceSessionID)
	if err != nil {
		return nil, err
	}
	// Revert the source only when this handoff terminated it. After an
	// abandoned initiation (snapshot failure) the source never left
	// Active and there is nothing to restore.
	if src.State == session.StateHandedOff && src.TerminatedByHandoff != nil && *src.TerminatedByHandoff == h.HandoffID {
		if err := src.Reactivate(); err != nil {
			return nil, err
		}
		if err := c.sessions.Store(ctx, src); err != nil {
			return nil, fmt.Errorf("cancel: failed to restore source session: %w", err)
		}
	}

	c.logger.Info("handoff cancelled",
		"handoff_id", h.HandoffID,
		"conversation_id", conversationID,
		"source_session_id", h.SourceSessionID)
	return h, nil
}

// GetPendingHandoff returns the conversation's single Initiated handoff,
// or nil when none is pending.
func (c *Coordinator) GetPendingHandoff(ctx context.Context, conversationID identity.ConversationID) (*Handoff, error) {
	c.locks.lock(conversationID)
	defer c.locks.unlock(conversationID)
	return c.pendingForConversation(ctx, conversationID)
}

// pendingForConversation scans every handoff sourced from the
// conversation's sessions for one still Initiated.
func (c *Coordinator) pendingForConversation(ctx context.Context, conversationID identity.ConversationID) (*Handoff, error) {
	sessions, err := c.sessions.FindByConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		handoffs, err := c.handoffs.FindBySourceSession(ctx, sess.SessionID)
		if err != nil {
			return nil, err
		}
		for _, h := range handoffs {
			if h.Status == StatusInitiated {
				return h, nil
			}
		}
	}
	return nil, nil
}

// conversationForHandoff resolves the conversation a handoff belongs to
// through its source session.
func (c *Coordinator) conversationForHandoff(ctx context.Context, handoffID identity.HandoffID) (identity.ConversationID, error) {
	h, err := c.handoffs.FindByID(ctx, handoffID)
	if err != nil {
		return "", err
	}
	src, err := c.sessions.FindByID(ctx, h.SourceSessionID)
	if err != nil {
		return "", err
	}
	return src.ConversationID, nil
}
