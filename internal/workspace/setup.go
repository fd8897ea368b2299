package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Setup builds isolated per-session config directories and links the shared
// skill and agent definitions into them, so concurrent sessions never step
// on each other's agent-side state.
type Setup struct {
	// BaseDir is where session config dirs live (e.g. ~/.deskagent/sessions).
	BaseDir string
	// SkillsDir and AgentsDir are the shared definition directories.
	SkillsDir string
	AgentsDir string

	cache *InitCache
}

// NewSetup creates a Setup guarded by the given init cache.
func NewSetup(baseDir, skillsDir, agentsDir string, cache *InitCache) *Setup {
	return &Setup{
		BaseDir:   baseDir,
		SkillsDir: skillsDir,
		AgentsDir: agentsDir,
		cache:     cache,
	}
}

// EnsureConfigDir returns the isolated config directory for a key (session
// or conversation id, depending on mode), creating and populating it at most
// once per process lifetime.
func (s *Setup) EnsureConfigDir(key string) (string, error) {
	dir := filepath.Join(s.BaseDir, key, "config")

	err := s.cache.Once(key, func() error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create session config dir: %w", err)
		}
		if err := linkShared(s.SkillsDir, filepath.Join(dir, "skills")); err != nil {
			return err
		}
		return linkShared(s.AgentsDir, filepath.Join(dir, "agents"))
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

// linkShared symlinks src into the session dir. A missing source is fine
// (the user may have no shared definitions); an existing link is fine too.
func linkShared(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	if err := os.Symlink(src, dst); err != nil && !os.IsExist(err) {
		return fmt.Errorf("failed to link %s: %w", src, err)
	}
	return nil
}
