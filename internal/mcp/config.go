package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// configFile is the on-disk shape: one file for all projects.
type configFile struct {
	Projects map[string]projectConfig `json:"projects"`
}

type projectConfig struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ConfigCache memoizes the parsed MCP config file, keyed by the file's
// modification time. A mtime change invalidates the whole cache and triggers
// a full re-read; there is no partial merge.
type ConfigCache struct {
	path string

	mu     sync.Mutex
	mtime  time.Time
	parsed *configFile
}

// NewConfigCache creates a cache watching the given config file.
func NewConfigCache(path string) *ConfigCache {
	return &ConfigCache{path: path}
}

// ServersFor returns the configured servers for a project path, re-reading
// the config file only when its mtime changed. A missing file yields an
// empty set, not an error.
func (c *ConfigCache) ServersFor(projectPath string) (map[string]ServerConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat mcp config: %w", err)
	}

	if c.parsed == nil || !info.ModTime().Equal(c.mtime) {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read mcp config: %w", err)
		}
		var parsed configFile
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse mcp config: %w", err)
		}
		c.parsed = &parsed
		c.mtime = info.ModTime()
	}

	project, ok := c.parsed.Projects[projectPath]
	if !ok {
		return nil, nil
	}

	servers := make(map[string]ServerConfig, len(project.MCPServers))
	for name, cfg := range project.MCPServers {
		cfg.Name = name
		servers[name] = cfg
	}
	return servers, nil
}

// Reset drops the memoized config so the next lookup re-reads the file.
func (c *ConfigCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parsed = nil
	c.mtime = time.Time{}
}
