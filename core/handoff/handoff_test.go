package handoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/identity"
)

var testCreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNewHandoffStartsInitiated(t *testing.T) {
	reason := "context budget exhausted"
	h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", &reason, testCreatedAt)

	assert.Equal(t, StatusInitiated, h.Status)
	assert.Equal(t, "agent-1", h.SourceAgent)
	assert.Equal(t, "agent-2", h.TargetAgent)
	require.NotNil(t, h.Reason)
	assert.Equal(t, reason, *h.Reason)
	assert.Nil(t, h.TargetSessionID)
	assert.Nil(t, h.CompletedAt)
}

func TestMarkCompleted(t *testing.T) {
	h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", nil, testCreatedAt)
	target := identity.NewAgentSessionID()
	at := testCreatedAt.Add(time.Minute)

	require.NoError(t, h.MarkCompleted(target, at))
	assert.Equal(t, StatusCompleted, h.Status)
	require.NotNil(t, h.TargetSessionID)
	assert.Equal(t, target, *h.TargetSessionID)
	require.NotNil(t, h.CompletedAt)
	assert.True(t, h.CompletedAt.Equal(at))

	// Both terminal states reject further transitions.
	assert.ErrorIs(t, h.MarkCompleted(target, at), ErrInvalidTransition)
	assert.ErrorIs(t, h.MarkCancelled(nil), ErrInvalidTransition)
}

func TestMarkCancelled(t *testing.T) {
	initial := "try agent-2"
	h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", &initial, testCreatedAt)

	override := "target unavailable"
	require.NoError(t, h.MarkCancelled(&override))
	assert.Equal(t, StatusCancelled, h.Status)
	require.NotNil(t, h.Reason)
	assert.Equal(t, override, *h.Reason)

	assert.ErrorIs(t, h.MarkCancelled(nil), ErrInvalidTransition)
	assert.ErrorIs(t, h.MarkCompleted(identity.NewAgentSessionID(), testCreatedAt), ErrInvalidTransition)
}

func TestMarkCancelledKeepsReasonWhenNil(t *testing.T) {
	initial := "try agent-2"
	h := NewHandoff(identity.NewAgentSessionID(), "agent-1", "agent-2", &initial, testCreatedAt)

	require.NoError(t, h.MarkCancelled(nil))
	require.NotNil(t, h.Reason)
	assert.Equal(t, initial, *h.Reason)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusInitiated.Valid())
	assert.False(t, StatusInitiated.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, Status("queued").Valid())
}
