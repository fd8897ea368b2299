// Package agent wraps the external coding-agent runtime: a subprocess that
// accepts a prompt and emits a stream of NDJSON events. The wire vocabulary
// is decoded into a closed set of RawMessage variants at this boundary so the
// rest of the system never sniffs ad hoc JSON shapes.
package agent

import (
	"context"
	"encoding/json"

	"github.com/calegria/deskagent/internal/message"
)

// Kind discriminates the RawMessage union.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInit is the runtime's first event: session id, model, tool list.
	KindInit
	// KindCompaction marks a context compaction boundary.
	KindCompaction
	// KindTextDelta is an incremental piece of assistant text.
	KindTextDelta
	// KindTextEnd closes the current text span.
	KindTextEnd
	// KindAssistant is a complete assistant message with content blocks.
	KindAssistant
	// KindToolResult carries the output of an earlier tool invocation.
	KindToolResult
	// KindResult is the terminal event: usage, cost, resumable session id,
	// and possibly an embedded error.
	KindResult
	// KindControlRequest is a permission question from the runtime: may this
	// tool run with this input. It is answered on the runtime's stdin, not
	// forwarded downstream.
	KindControlRequest
)

// Approval behaviors for answering a control request.
const (
	BehaviorAllow = "allow"
	BehaviorDeny  = "deny"
)

// Approval is the host's answer to a runtime permission request.
type Approval struct {
	Behavior string
	// Message carries the denial reason.
	Message string
	// UpdatedInput optionally replaces the tool input on allow; this is how
	// collected user answers travel back to the runtime.
	UpdatedInput json.RawMessage
}

// BlockType discriminates assistant content blocks.
type BlockType string

const (
	BlockText    BlockType = "text"
	BlockToolUse BlockType = "tool_use"
)

// Block is one content block of a complete assistant message.
type Block struct {
	Type  BlockType
	Text  string
	ID    string
	Name  string
	Input json.RawMessage
}

// RawMessage is one decoded runtime event. Exactly the fields for its Kind
// are meaningful. Err is set when the event carries an embedded error, which
// can happen on any kind, not just KindResult.
type RawMessage struct {
	Kind Kind

	SessionID   string
	Model       string
	MessageUUID string

	Text string

	Blocks []Block

	InvocationID string
	ToolName     string
	Input        json.RawMessage
	Output       json.RawMessage

	// RequestID correlates a control request with its stdin answer.
	RequestID string

	Usage   *message.Usage
	CostUSD float64

	IsError bool
	Err     string
}

// Options configures one runtime invocation.
type Options struct {
	Prompt            string
	WorkingDir        string
	PermissionMode    string // "plan" or "agent"
	Model             string
	ResumeID          string // resume an earlier dialogue; empty starts fresh
	MaxThinkingTokens int
	ConfigDir         string   // isolated per-session config directory
	MCPServers        []string // allowed server names after status filtering
	Env               []string

	// ApproveTool answers the runtime's tool-permission requests. The
	// runtime blocks the tool until the answer is written back; nil allows
	// everything.
	ApproveTool func(ctx context.Context, toolName string, input json.RawMessage) Approval
}

// Runtime is the external agent collaborator. Query starts one invocation
// and yields decoded events until the stream ends; the channel is closed on
// completion, failure, or ctx cancellation. Runtime-level failures after a
// successful start surface as a KindResult event with IsError set.
type Runtime interface {
	Query(ctx context.Context, opts Options) (<-chan RawMessage, error)
}
