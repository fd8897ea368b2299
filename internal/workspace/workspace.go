// Package workspace resolves the working directory for an agent invocation
// and prepares each session's isolated config directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Resolver turns user-supplied working directories into absolute, verified
// paths. Relative paths are resolved against the user's home directory.
type Resolver struct {
	Home string
}

// NewResolver creates a resolver rooted at the current user's home.
func NewResolver() (*Resolver, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &Resolver{Home: home}, nil
}

// Resolve returns the absolute path for dir, or an error when the resolved
// path does not exist or is not a directory. Callers fall back to the
// conversation's stored project path before giving up; an ephemeral worktree
// may have been deleted while the stable checkout still exists.
func (r *Resolver) Resolve(dir string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("working directory is empty")
	}

	path := dir
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Home, path)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("workspace path %s: %w", path, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace path %s is not a directory", path)
	}
	return path, nil
}

// InitCache is a one-shot per-key guard: expensive directory setup runs at
// most once per key for the process lifetime. Cleared only by Reset.
type InitCache struct {
	mu   sync.Mutex
	done map[string]bool
}

// NewInitCache creates an empty init cache.
func NewInitCache() *InitCache {
	return &InitCache{done: make(map[string]bool)}
}

// Once runs fn unless it already succeeded for this key. A failed fn leaves
// the key unmarked so the next caller retries.
func (c *InitCache) Once(key string, fn func() error) error {
	c.mu.Lock()
	if c.done[key] {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}

	c.mu.Lock()
	c.done[key] = true
	c.mu.Unlock()
	return nil
}

// Done reports whether setup already ran for a key.
func (c *InitCache) Done(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done[key]
}

// Reset forgets all keys.
func (c *InitCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done = make(map[string]bool)
}
