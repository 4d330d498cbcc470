package conversation

import (
	"encoding/json"
	"time"

	"github.com/leynos/baton/core/identity"
)

// =============================================================================
// Message Model
// =============================================================================
//
// A Message is one entry in a conversation's append-only log. Messages are
// immutable once stored: the log never rewrites content, sequence numbers
// or timestamps. Content is an ordered list of tagged parts so a single
// message can mix text with tool activity.

// Role identifies the author class of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// PartType tags a ContentPart variant.
type PartType string

const (
	PartText       PartType = "text"
	PartToolCall   PartType = "tool_call"
	PartToolResult PartType = "tool_result"
	PartAttachment PartType = "attachment"
)

// ContentPart is a tagged variant. Exactly the fields for its Type are
// populated; the rest stay zero.
type ContentPart struct {
	Type PartType `json:"type"`

	// Text payload (PartText).
	Text string `json:"text,omitempty"`

	// Tool invocation (PartToolCall) and its result (PartToolResult)
	// share CallID; ToolName and Arguments belong to the call, Outcome
	// to the result.
	CallID    string          `json:"call_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Outcome   json.RawMessage `json:"outcome,omitempty"`

	// Reference to external content (PartAttachment).
	Reference string `json:"reference,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ToolCallPart builds a tool invocation part.
func ToolCallPart(callID, toolName string, arguments json.RawMessage) ContentPart {
	return ContentPart{Type: PartToolCall, CallID: callID, ToolName: toolName, Arguments: arguments}
}

// ToolResultPart builds a tool result part.
func ToolResultPart(callID string, outcome json.RawMessage) ContentPart {
	return ContentPart{Type: PartToolResult, CallID: callID, Outcome: outcome}
}

// AttachmentPart builds an attachment reference part.
func AttachmentPart(reference string) ContentPart {
	return ContentPart{Type: PartAttachment, Reference: reference}
}

// Message is a single conversation log entry.
type Message struct {
	ID             identity.MessageID      `json:"id"`
	ConversationID identity.ConversationID `json:"conversation_id"`
	Role           Role                    `json:"role"`
	Content        []ContentPart           `json:"content"`
	SequenceNumber identity.SequenceNumber `json:"sequence_number"`
	Metadata       map[string]string       `json:"metadata,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.Content = make([]ContentPart, len(m.Content))
	for i, p := range m.Content {
		cp := p
		cp.Arguments = append(json.RawMessage(nil), p.Arguments...)
		cp.Outcome = append(json.RawMessage(nil), p.Outcome...)
		out.Content[i] = cp
	}
	if m.Metadata != nil {
		out.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}

// PlainText concatenates the message's text parts, newline separated.
// Tool and attachment parts contribute nothing.
func (m *Message) PlainText() string {
	var out string
	for _, p := range m.Content {
		if p.Type != PartText || p.Text == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += p.Text
	}
	return out
}
