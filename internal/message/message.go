// Package message defines the canonical conversation types and the chunk
// protocol used across the codebase. All packages import from here to avoid
// circular dependencies.
package message

import (
	"encoding/json"
)

// Role represents the role of a message participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType discriminates the Part union.
type PartType string

const (
	PartText   PartType = "text"
	PartTool   PartType = "tool"
	PartSystem PartType = "system"
)

// ToolState tracks a tool part's lifecycle: input arrived, then output.
type ToolState string

const (
	ToolStateCall   ToolState = "call"
	ToolStateResult ToolState = "result"
)

// Part is one structural unit of a persisted Message: a text span, a tool
// invocation record, or a system marker (e.g. a compaction boundary).
type Part struct {
	Type PartType `json:"type"`

	// Text fields
	Text string `json:"text,omitempty"`

	// Tool fields. InvocationID uniquely addresses a tool part within one
	// message; a later output event mutates the existing part in place.
	ToolName     string          `json:"toolName,omitempty"`
	InvocationID string          `json:"invocationId,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	State        ToolState       `json:"state,omitempty"`

	// System marker fields
	Marker string `json:"marker,omitempty"`
}

// Usage contains token usage information.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Metadata carries per-message bookkeeping: the upstream resume id, token
// and cost usage, and the internal UUID used for rollback snapshots.
type Metadata struct {
	ResumeID    string  `json:"resumeId,omitempty"`
	MessageUUID string  `json:"messageUuid,omitempty"`
	Usage       *Usage  `json:"usage,omitempty"`
	CostUSD     float64 `json:"costUsd,omitempty"`
}

// Message represents a chat message exchanged between user and assistant.
// Messages are persisted whole; a half-built message is never written except
// through the deliberate partial-save path on abort or error, which still
// writes a complete, self-consistent Message.
type Message struct {
	Role  Role      `json:"role"`
	Parts []Part    `json:"parts"`
	Meta  *Metadata `json:"meta,omitempty"`
}

// NewUserMessage creates a user message with a single text part.
func NewUserMessage(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{{Type: PartText, Text: text}},
	}
}

// TextContent concatenates the message's text parts.
func (m Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// IsUserText reports whether the message is a user message whose text
// content equals the given string. Used for duplicate-resubmission checks.
func (m Message) IsUserText(text string) bool {
	return m.Role == RoleUser && m.TextContent() == text
}
