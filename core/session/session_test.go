package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leynos/baton/core/identity"
)

var testCreatedAt = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestNewSessionStartsActive(t *testing.T) {
	conv := identity.NewConversationID()
	sess := NewSession(conv, "agent-1", 1, nil, testCreatedAt)

	assert.Equal(t, StateActive, sess.State)
	assert.Equal(t, conv, sess.ConversationID)
	assert.Nil(t, sess.InitiatedByHandoff)
	assert.Nil(t, sess.TerminatedByHandoff)
	assert.NotEmpty(t, sess.SessionID)
}

func TestNewSessionAsSuccessor(t *testing.T) {
	handoff := identity.NewHandoffID()
	sess := NewSession(identity.NewConversationID(), "agent-2", 6, &handoff, testCreatedAt)

	require.NotNil(t, sess.InitiatedByHandoff)
	assert.Equal(t, handoff, *sess.InitiatedByHandoff)
	assert.Equal(t, StateActive, sess.State)
}

func TestMarkHandedOff(t *testing.T) {
	sess := NewSession(identity.NewConversationID(), "agent-1", 1, nil, testCreatedAt)
	handoff := identity.NewHandoffID()

	require.NoError(t, sess.MarkHandedOff(handoff))
	assert.Equal(t, StateHandedOff, sess.State)
	require.NotNil(t, sess.TerminatedByHandoff)
	assert.Equal(t, handoff, *sess.TerminatedByHandoff)

	// HandedOff is terminal for the instance.
	err := sess.MarkHandedOff(identity.NewHandoffID())
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestReactivate(t *testing.T) {
	sess := NewSession(identity.NewConversationID(), "agent-1", 1, nil, testCreatedAt)

	// Cannot reactivate a session that was never handed off.
	assert.ErrorIs(t, sess.Reactivate(), ErrNotHandedOff)

	require.NoError(t, sess.MarkHandedOff(identity.NewHandoffID()))
	require.NoError(t, sess.Reactivate())
	assert.Equal(t, StateActive, sess.State)
	assert.Nil(t, sess.TerminatedByHandoff)
}

func TestStateValid(t *testing.T) {
	assert.True(t, StateActive.Valid())
	assert.True(t, StateHandedOff.Valid())
	assert.False(t, State("paused").Valid())
}

func TestCloneIsolation(t *testing.T) {
	handoff := identity.NewHandoffID()
	sess := NewSession(identity.NewConversationID(), "agent-1", 1, &handoff, testCreatedAt)

	clone := sess.Clone()
	require.NoError(t, clone.MarkHandedOff(identity.NewHandoffID()))

	assert.Equal(t, StateActive, sess.State)
	assert.Nil(t, sess.TerminatedByHandoff)
}
