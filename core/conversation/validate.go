package conversation

import (
	"errors"
	"fmt"

	"github.com/leynos/baton/core/clock"
	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Message Validation
// =============================================================================
//
// Validator is the construction path for messages. It enforces structural
// validity (non-empty content, role/part compatibility, positive sequence
// numbers) before a message ever reaches the log, so the log itself only
// has to enforce identity and sequencing.

var (
	// ErrEmptyContent indicates a message with no content parts.
	ErrEmptyContent = errors.New("message has no content parts")

	// ErrInvalidRole indicates an unknown message role.
	ErrInvalidRole = errors.New("unknown message role")

	// ErrInvalidSequence indicates a non-positive sequence number.
	ErrInvalidSequence = errors.New("sequence number must be positive")

	// ErrIncompatiblePart indicates a content part the role may not carry.
	ErrIncompatiblePart = errors.New("content part incompatible with role")

	// ErrMalformedPart indicates a part missing a required field.
	ErrMalformedPart = errors.New("malformed content part")
)

// Validator builds well-formed messages. The zero value is not usable;
// construct with NewValidator.
type Validator struct {
	clock clock.Clock
}

// NewValidator returns a Validator stamping CreatedAt from c.
func NewValidator(c clock.Clock) *Validator {
	if c == nil {
		c = clock.System()
	}
	return &Validator{clock: c}
}

// Build assembles a validated message with a fresh MessageID.
func (v *Validator) Build(conversationID identity.ConversationID, role Role, seq identity.SequenceNumber, parts []ContentPart, metadata map[string]string) (*Message, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if !seq.Valid() {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSequence, seq)
	}
	if len(parts) == 0 {
		return nil, ErrEmptyContent
	}
	for i, p := range parts {
		if err := checkPart(role, p); err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
	}

	msg := &Message{
		ID:             identity.NewMessageID(),
		ConversationID: conversationID,
		Role:           role,
		Content:        append([]ContentPart(nil), parts...),
		SequenceNumber: seq,
		Metadata:       metadata,
		CreatedAt:      v.clock.Now(),
	}
	return msg, nil
}

func checkPart(role Role, p ContentPart) error {
	switch p.Type {
	case PartText:
		if p.Text == "" {
			return fmt.Errorf("%w: empty text", ErrMalformedPart)
		}
	case PartToolCall:
		if p.CallID == "" || p.ToolName == "" {
			return fmt.Errorf("%w: tool call needs call_id and tool_name", ErrMalformedPart)
		}
		if role != RoleAssistant {
			return fmt.Errorf("%w: tool calls belong to assistant messages", ErrIncompatiblePart)
		}
	case PartToolResult:
		if p.CallID == "" {
			return fmt.Errorf("%w: tool result needs call_id", ErrMalformedPart)
		}
		if role != RoleTool {
			return fmt.Errorf("%w: tool results belong to tool messages", ErrIncompatiblePart)
		}
	case PartAttachment:
		if p.Reference == "" {
			return fmt.Errorf("%w: attachment needs a reference", ErrMalformedPart)
		}
	default:
		return fmt.Errorf("%w: unknown part type %q", ErrMalformedPart, p.Type)
	}
	return nil
}
