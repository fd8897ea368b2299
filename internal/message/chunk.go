package message

import "encoding/json"

// ChunkType represents the type of a stream chunk. Chunks are the system's
// own streaming vocabulary, derived from raw agent runtime messages at a
// single translation boundary.
type ChunkType string

const (
	ChunkTextDelta  ChunkType = "text-delta"
	ChunkTextEnd    ChunkType = "text-end"
	ChunkToolInput  ChunkType = "tool-input-available"
	ChunkToolOutput ChunkType = "tool-output-available"
	ChunkMetadata   ChunkType = "message-metadata"
	ChunkSystem     ChunkType = "system-marker"
	ChunkQuestion   ChunkType = "question"
	ChunkNeedAuth   ChunkType = "need-auth"
	ChunkFinish     ChunkType = "finish"
	ChunkError      ChunkType = "error"
)

// System marker names carried by ChunkSystem.
const (
	MarkerCompactionStart = "compaction-start"
	MarkerCompactionDone  = "compaction-done"
)

// ErrorCategory is the closed error taxonomy. Every failure is classified as
// close to its origin as possible and drives both the terminal error chunk
// and any locally recovered behavior.
type ErrorCategory string

const (
	ErrWorkspacePath  ErrorCategory = "workspace-path-error"
	ErrAuthFailed     ErrorCategory = "auth-failed"
	ErrInvalidAPIKey  ErrorCategory = "invalid-credential"
	ErrRateLimited    ErrorCategory = "rate-limited"
	ErrOverloaded     ErrorCategory = "overloaded"
	ErrProcessCrash   ErrorCategory = "process-crash"
	ErrExecMissing    ErrorCategory = "executable-missing"
	ErrNetwork        ErrorCategory = "network-error"
	ErrTimeout        ErrorCategory = "timeout"
	ErrSDKUnknown     ErrorCategory = "unclassified-sdk-error"
	ErrEmptyResponse  ErrorCategory = "empty-response"
)

// QuestionOption is a single selectable answer for a user question.
type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question is one question the agent wants the user to answer before a tool
// invocation continues.
type Question struct {
	Question    string           `json:"question"`
	Header      string           `json:"header,omitempty"`
	Options     []QuestionOption `json:"options,omitempty"`
	MultiSelect bool             `json:"multiSelect,omitempty"`
}

// Chunk is one unit of the streaming protocol delivered to the UI.
// Exactly the fields for its Type are set.
type Chunk struct {
	Type ChunkType `json:"type"`

	// ChunkTextDelta
	Text string `json:"text,omitempty"`

	// Tool chunks
	ToolName     string          `json:"toolName,omitempty"`
	InvocationID string          `json:"invocationId,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`

	// ChunkMetadata
	Meta *Metadata `json:"meta,omitempty"`

	// ChunkSystem
	Marker string `json:"marker,omitempty"`

	// ChunkQuestion
	Questions []Question `json:"questions,omitempty"`

	// ChunkQuestion approval context: a unified diff preview when the
	// pending invocation would modify a file.
	DiffPreview string `json:"diffPreview,omitempty"`

	// ChunkError
	ErrorCategory ErrorCategory `json:"errorCategory,omitempty"`
	ErrorText     string        `json:"errorText,omitempty"`
}
