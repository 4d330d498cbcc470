package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDsAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := string(NewConversationID())
		require.False(t, seen[id], "duplicate conversation id generated")
		seen[id] = true
	}
}

func TestParseRoundTrip(t *testing.T) {
	conv := NewConversationID()
	parsed, err := ParseConversationID(string(conv))
	require.NoError(t, err)
	assert.Equal(t, conv, parsed)

	msg := NewMessageID()
	parsedMsg, err := ParseMessageID(string(msg))
	require.NoError(t, err)
	assert.Equal(t, msg, parsedMsg)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseConversationID("not-a-token")
	assert.Error(t, err)

	_, err = ParseHandoffID("")
	assert.Error(t, err)

	_, err = ParseAgentSessionID("1234")
	assert.Error(t, err)
}

func TestSequenceNumberValid(t *testing.T) {
	assert.False(t, SequenceNumber(0).Valid())
	assert.False(t, SequenceNumber(-5).Valid())
	assert.True(t, SequenceNumber(1).Valid())
	assert.True(t, SequenceNumber(1<<40).Valid())
}
