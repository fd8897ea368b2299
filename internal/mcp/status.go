package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/log"
)

const (
	// statusTTL is how long a cached server status stays valid.
	statusTTL = 5 * time.Minute

	// statusFileVersion guards the persisted format. An unknown version
	// discards the file rather than misparsing it.
	statusFileVersion = 1
)

type serverStatus struct {
	Status   string    `json:"status"`
	CachedAt time.Time `json:"cachedAt"`
}

type projectEntry struct {
	Servers   map[string]serverStatus `json:"servers"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

type statusFile struct {
	Version int                     `json:"version"`
	Entries map[string]projectEntry `json:"entries"`
}

// StatusCache remembers per-project MCP server health so known-broken
// integrations are not offered to the agent on every turn. Entries expire
// after a fixed TTL. The cache is mirrored to disk write-through with an
// atomic temp-file-then-rename, and loaded lazily: the file's own mtime is
// checked against a process-local stamp so concurrent sessions don't
// redundantly reparse.
type StatusCache struct {
	path string

	mu       sync.Mutex
	entries  map[string]projectEntry
	loadedAt time.Time

	now func() time.Time
}

// NewStatusCache creates a cache persisted at the given path.
func NewStatusCache(path string) *StatusCache {
	return &StatusCache{
		path:    path,
		entries: make(map[string]projectEntry),
		now:     time.Now,
	}
}

// SetStatus records a server's status for a project and writes the cache
// through to disk.
func (c *StatusCache) SetStatus(projectPath, server, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	entry, ok := c.entries[projectPath]
	if !ok {
		entry = projectEntry{Servers: make(map[string]serverStatus)}
	}
	entry.Servers[server] = serverStatus{Status: status, CachedAt: c.now()}
	entry.UpdatedAt = c.now()
	c.entries[projectPath] = entry

	return c.persist()
}

// Status returns a server's cached status. Expired or missing entries
// report ok=false.
func (c *StatusCache) Status(projectPath, server string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureLoaded()

	entry, ok := c.entries[projectPath]
	if !ok {
		return "", false
	}
	s, ok := entry.Servers[server]
	if !ok {
		return "", false
	}
	if c.now().Sub(s.CachedAt) > statusTTL {
		return "", false
	}
	return s.Status, true
}

// Filter returns the servers that should be offered to the agent: every
// input name except those whose cached status is exactly "failed" or
// "needs-auth". The result is sorted for stable command lines.
func (c *StatusCache) Filter(projectPath string, servers []string) []string {
	included := make([]string, 0, len(servers))
	for _, name := range servers {
		status, ok := c.Status(projectPath, name)
		if ok && (status == StatusFailed || status == StatusNeedsAuth) {
			continue
		}
		included = append(included, name)
	}
	sort.Strings(included)
	return included
}

// Reset clears the in-memory cache and deletes the disk mirror.
func (c *StatusCache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]projectEntry)
	c.loadedAt = time.Time{}

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove status cache file: %w", err)
	}
	return nil
}

// ensureLoaded lazily merges the disk mirror into memory when the file is
// newer than the last load. Caller must hold c.mu.
func (c *StatusCache) ensureLoaded() {
	info, err := os.Stat(c.path)
	if err != nil {
		return
	}
	if !info.ModTime().After(c.loadedAt) {
		return
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}

	var f statusFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.Logger().Debug("Discarding unparseable status cache", zap.Error(err))
		return
	}
	if f.Version != statusFileVersion {
		log.Logger().Debug("Discarding status cache with unknown version",
			zap.Int("version", f.Version))
		return
	}

	if f.Entries != nil {
		c.entries = f.Entries
	}
	c.loadedAt = c.now()
}

// persist writes the cache to disk atomically: readers never observe a
// half-written file. Caller must hold c.mu.
func (c *StatusCache) persist() error {
	data, err := json.MarshalIndent(statusFile{
		Version: statusFileVersion,
		Entries: c.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".mcp-status-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace status cache file: %w", err)
	}

	c.loadedAt = c.now()
	return nil
}
