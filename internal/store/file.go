package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/calegria/deskagent/internal/message"
)

// FileStore persists sessions as one JSON file per row under
// <base>/sessions, conversation metadata in <base>/conversations.json, and
// rollback snapshots under <base>/snapshots. All writes go through an atomic
// temp-file-then-rename.
type FileStore struct {
	mu      sync.Mutex
	baseDir string
}

type conversationMeta struct {
	ProjectPath string    `json:"projectPath,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewFileStore creates a store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	for _, dir := range []string{
		filepath.Join(baseDir, "sessions"),
		filepath.Join(baseDir, "snapshots"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) sessionPath(id string) string {
	return filepath.Join(s.baseDir, "sessions", id+".json")
}

func (s *FileStore) conversationsPath() string {
	return filepath.Join(s.baseDir, "conversations.json")
}

// SessionState reads a session row. A stream marker found on disk is an
// orphan from a crashed process: the session is reported as not currently
// streaming, and no automatic resume happens.
func (s *FileStore) SessionState(sessionID string) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.sessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return SessionState{}, nil
		}
		return SessionState{}, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}

	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return SessionState{}, fmt.Errorf("failed to parse session %s: %w", sessionID, err)
	}

	state.StreamID = ""
	return state, nil
}

// ReplaceSessionState atomically replaces a session row.
func (s *FileStore) ReplaceSessionState(sessionID string, state SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", sessionID, err)
	}
	return atomicWrite(s.sessionPath(sessionID), data)
}

// ProjectPath returns the project checkout recorded for a conversation.
func (s *FileStore) ProjectPath(conversationID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := s.readConversations()
	meta, ok := metas[conversationID]
	if !ok || meta.ProjectPath == "" {
		return "", false
	}
	return meta.ProjectPath, true
}

// SetProjectPath records the stable project checkout for a conversation.
// The conversation itself is created by the surrounding application.
func (s *FileStore) SetProjectPath(conversationID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := s.readConversations()
	meta := metas[conversationID]
	meta.ProjectPath = path
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = time.Now()
	}
	metas[conversationID] = meta
	return s.writeConversations(metas)
}

// TouchConversation bumps the conversation's updated-at timestamp.
func (s *FileStore) TouchConversation(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := s.readConversations()
	meta := metas[conversationID]
	meta.UpdatedAt = time.Now()
	metas[conversationID] = meta
	return s.writeConversations(metas)
}

// UpdatedAt returns a conversation's last-touched timestamp.
func (s *FileStore) UpdatedAt(conversationID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.readConversations()[conversationID]
	return meta.UpdatedAt, ok
}

// RecordSnapshot stores a rollback snapshot keyed by message UUID.
func (s *FileStore) RecordSnapshot(messageUUID string, msg message.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot %s: %w", messageUUID, err)
	}
	return atomicWrite(filepath.Join(s.baseDir, "snapshots", messageUUID+".json"), data)
}

// ConversationInfo is one row of the conversation listing.
type ConversationInfo struct {
	ID          string
	ProjectPath string
	UpdatedAt   time.Time
}

// Conversations lists known conversations, most recently updated first.
func (s *FileStore) Conversations() []ConversationInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	metas := s.readConversations()
	out := make([]ConversationInfo, 0, len(metas))
	for id, m := range metas {
		out = append(out, ConversationInfo{
			ID:          id,
			ProjectPath: m.ProjectPath,
			UpdatedAt:   m.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *FileStore) readConversations() map[string]conversationMeta {
	metas := make(map[string]conversationMeta)
	data, err := os.ReadFile(s.conversationsPath())
	if err != nil {
		return metas
	}
	_ = json.Unmarshal(data, &metas)
	return metas
}

func (s *FileStore) writeConversations(metas map[string]conversationMeta) error {
	data, err := json.MarshalIndent(metas, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}
	return atomicWrite(s.conversationsPath(), data)
}

// atomicWrite replaces path via temp file and rename so readers never see a
// half-written file.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".store-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
