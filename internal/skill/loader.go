// Package skill discovers shared skill and agent definitions: directories of
// markdown files with YAML frontmatter. The workspace setup symlinks these
// into each session's isolated config directory, and the mention parser's
// callers use them to validate @[skill:...] and @[agent:...] references.
package skill

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is one skill or agent definition on disk.
type Definition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Dir is the definition's directory, the unit that gets symlinked.
	Dir string `yaml:"-"`
}

// Loader discovers definitions under a base config directory.
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at the user config directory
// (e.g. ~/.deskagent).
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Skills lists skill definitions: <base>/skills/<name>/SKILL.md.
func (l *Loader) Skills() []Definition {
	return l.scan(filepath.Join(l.baseDir, "skills"), "SKILL.md")
}

// Agents lists agent definitions: <base>/agents/<name>/AGENT.md.
func (l *Loader) Agents() []Definition {
	return l.scan(filepath.Join(l.baseDir, "agents"), "AGENT.md")
}

// SkillsDir returns the shared skills directory path.
func (l *Loader) SkillsDir() string { return filepath.Join(l.baseDir, "skills") }

// AgentsDir returns the shared agents directory path.
func (l *Loader) AgentsDir() string { return filepath.Join(l.baseDir, "agents") }

func (l *Loader) scan(dir, marker string) []Definition {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var defs []Definition
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		defDir := filepath.Join(dir, entry.Name())
		def, ok := parseDefinition(filepath.Join(defDir, marker))
		if !ok {
			continue
		}
		if def.Name == "" {
			def.Name = entry.Name()
		}
		def.Dir = defDir
		defs = append(defs, def)
	}
	return defs
}

// parseDefinition reads the YAML frontmatter block delimited by "---" lines.
func parseDefinition(path string) (Definition, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Definition{}, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() || strings.TrimSpace(scanner.Text()) != "---" {
		return Definition{}, false
	}

	var frontmatter strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			var def Definition
			if err := yaml.Unmarshal([]byte(frontmatter.String()), &def); err != nil {
				return Definition{}, false
			}
			return def, true
		}
		frontmatter.WriteString(line)
		frontmatter.WriteString("\n")
	}
	return Definition{}, false
}
