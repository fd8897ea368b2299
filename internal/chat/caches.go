package chat

import (
	"sync"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/mcp"
	"github.com/calegria/deskagent/internal/workspace"
)

// Caches bundles the process-wide caches plus the memoized runtime handle.
// Constructed once at startup and injected; ResetAll is the operational
// recovery hatch.
type Caches struct {
	Config *mcp.ConfigCache
	Status *mcp.StatusCache
	Init   *workspace.InitCache

	mu         sync.Mutex
	runtime    agent.Runtime
	newRuntime func() agent.Runtime
}

// NewCaches creates the cache bundle. newRuntime builds the agent runtime on
// first use; the handle is memoized until ResetAll.
func NewCaches(config *mcp.ConfigCache, status *mcp.StatusCache, init *workspace.InitCache, newRuntime func() agent.Runtime) *Caches {
	return &Caches{
		Config:     config,
		Status:     status,
		Init:       init,
		newRuntime: newRuntime,
	}
}

// Runtime returns the memoized agent runtime, constructing it on first use.
func (c *Caches) Runtime() agent.Runtime {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.runtime == nil {
		c.runtime = c.newRuntime()
	}
	return c.runtime
}

// ResetAll synchronously clears every in-memory cache, deletes the on-disk
// status file, and drops the memoized runtime handle.
func (c *Caches) ResetAll() error {
	c.mu.Lock()
	c.runtime = nil
	c.mu.Unlock()

	c.Config.Reset()
	c.Init.Reset()
	return c.Status.Reset()
}
