// Package mcp caches MCP server configuration and health status so the chat
// pipeline can decide, per turn, which integrations to offer the agent
// without re-reading or re-probing anything on the hot path. The servers
// themselves are managed by the agent subprocess.
package mcp

// ServerConfig describes one configured MCP server.
type ServerConfig struct {
	Name    string            `json:"-"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Type    string            `json:"type,omitempty"` // "stdio", "http", "sse"
}

// Known status strings for the server-status cache. Only these two exclude a
// server from the active set; anything else, including no cached status at
// all, keeps the server in (a missing capability is a worse failure mode
// than offering a broken one).
const (
	StatusFailed    = "failed"
	StatusNeedsAuth = "needs-auth"
	StatusHealthy   = "healthy"
)
