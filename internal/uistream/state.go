package uistream

import (
	"sync"

	"github.com/calegria/deskagent/internal/message"
)

// PendingQuestion is the question currently awaiting a user answer, if any.
type PendingQuestion struct {
	InvocationID string
	Questions    []message.Question
	DiffPreview  string
}

// UIState is the shared mirror of stream side effects the UI renders from:
// the pending question, compaction-in-progress, and session metadata. Safe
// for concurrent access; one instance is shared across adapters.
type UIState struct {
	mu         sync.Mutex
	question   *PendingQuestion
	compacting bool
	meta       message.Metadata
}

// NewUIState creates an empty mirror.
func NewUIState() *UIState {
	return &UIState{}
}

// SetQuestion records the pending question.
func (s *UIState) SetQuestion(invocationID string, questions []message.Question, diff string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = &PendingQuestion{
		InvocationID: invocationID,
		Questions:    questions,
		DiffPreview:  diff,
	}
}

// ClearQuestion removes the pending question if it matches the invocation.
// Tool outputs for other invocations leave it alone.
func (s *UIState) ClearQuestion(invocationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.question != nil && s.question.InvocationID == invocationID {
		s.question = nil
	}
}

// Question returns the pending question, or nil.
func (s *UIState) Question() *PendingQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question
}

// SetCompacting flags a context compaction in progress.
func (s *UIState) SetCompacting(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.compacting = on
}

// Compacting reports whether a compaction is in progress.
func (s *UIState) Compacting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compacting
}

// MergeMeta folds metadata chunks into the session metadata mirror.
func (s *UIState) MergeMeta(m *message.Metadata) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ResumeID != "" {
		s.meta.ResumeID = m.ResumeID
	}
	if m.MessageUUID != "" {
		s.meta.MessageUUID = m.MessageUUID
	}
	if m.Usage != nil {
		s.meta.Usage = m.Usage
	}
	if m.CostUSD != 0 {
		s.meta.CostUSD = m.CostUSD
	}
}

// Meta returns a copy of the mirrored session metadata.
func (s *UIState) Meta() message.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Clear resets transient stream state (question, compaction) when a stream
// ends. Metadata survives; it describes the session, not the stream.
func (s *UIState) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.question = nil
	s.compacting = false
}
