// Package store defines the conversation persistence contract used by the
// chat pipeline and a file-backed implementation. The pipeline only ever
// needs two operations per session row: read the current state and replace
// it atomically. Only the owning session writes its own row, and only at
// well-defined points, so last-writer-wins at the row level cannot lose
// another session's update.
package store

import (
	"github.com/calegria/deskagent/internal/message"
)

// SessionState is one sub-conversation row: the serialized messages, the
// upstream resume id, and the in-flight stream marker.
type SessionState struct {
	Messages []message.Message `json:"messages"`
	ResumeID string            `json:"resumeId,omitempty"`
	// StreamID is non-empty only while a stream is active. A non-empty
	// value observed on load is an orphan from a crash and is cleared.
	StreamID string `json:"streamId,omitempty"`
}

// Store is the external persistence collaborator.
type Store interface {
	// SessionState reads a session row. A session with no stored state
	// yields the zero value, not an error.
	SessionState(sessionID string) (SessionState, error)

	// ReplaceSessionState atomically replaces a session row.
	ReplaceSessionState(sessionID string, state SessionState) error

	// ProjectPath returns the stable project checkout recorded for a
	// conversation, used as the workspace-resolution fallback.
	ProjectPath(conversationID string) (string, bool)

	// SetProjectPath records the stable project checkout for a conversation.
	SetProjectPath(conversationID, path string) error

	// TouchConversation bumps the conversation's updated-at timestamp.
	TouchConversation(conversationID string) error

	// RecordSnapshot stores a rollback snapshot of a message keyed by its
	// internal message UUID.
	RecordSnapshot(messageUUID string, msg message.Message) error
}
