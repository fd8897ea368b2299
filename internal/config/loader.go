package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Loader handles loading and merging settings from multiple sources.
type Loader struct {
	// userDir is the user-level config directory (e.g. ~/.deskagent).
	userDir string

	// projectDir is the project-level config directory (e.g. .deskagent).
	projectDir string
}

// NewLoader creates a settings loader rooted at ~/.deskagent and .deskagent.
func NewLoader() *Loader {
	homeDir, _ := os.UserHomeDir()
	return &Loader{
		userDir:    filepath.Join(homeDir, ".deskagent"),
		projectDir: ".deskagent",
	}
}

// NewLoaderWithDirs creates a loader with custom directories.
func NewLoaderWithDirs(userDir, projectDir string) *Loader {
	return &Loader{userDir: userDir, projectDir: projectDir}
}

// Load loads and merges settings from all sources. Missing or malformed
// files are skipped; the result always has defaults filled in.
func (l *Loader) Load() (*Settings, error) {
	settings := NewSettings()

	sources := []string{
		filepath.Join(l.userDir, "settings.json"),
		filepath.Join(l.projectDir, "settings.json"),
		filepath.Join(l.projectDir, "settings.local.json"),
	}

	for _, src := range sources {
		if data, err := os.ReadFile(src); err == nil {
			var s Settings
			if err := json.Unmarshal(data, &s); err == nil {
				settings = Merge(settings, &s)
			}
		}
	}

	return settings, nil
}

// UserDir returns the user config directory path.
func (l *Loader) UserDir() string {
	return l.userDir
}

// EnsureUserDir creates the user config directory if it doesn't exist.
func (l *Loader) EnsureUserDir() error {
	return os.MkdirAll(l.userDir, 0755)
}

// SaveToUser writes settings to the user-level settings file, merging with
// whatever is already there.
func (l *Loader) SaveToUser(settings *Settings) error {
	if err := l.EnsureUserDir(); err != nil {
		return err
	}
	path := filepath.Join(l.userDir, "settings.json")

	toSave := settings
	if data, err := os.ReadFile(path); err == nil {
		var existing Settings
		if err := json.Unmarshal(data, &existing); err == nil {
			toSave = Merge(&existing, settings)
		}
	}

	data, err := json.MarshalIndent(toSave, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
