// Package mention extracts structured @[kind:name] references from prompt
// text and rewrites the prompt for the agent runtime.
package mention

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenRe matches @[kind:name] where kind is one of the known kinds. The
// name may contain anything except a closing bracket.
var tokenRe = regexp.MustCompile(`@\[(file|folder|skill|agent|tool):([^\]]+)\]`)

// toolNameRe validates tool names before acceptance. Mentions carrying any
// other character are dropped, which closes off prompt injection through
// crafted mention syntax.
var toolNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Result holds the rewritten prompt and the extracted references, each in
// first-appearance order.
type Result struct {
	// Text is the cleaned prompt. Agent, skill, and tool tokens are removed;
	// file and folder tokens stay verbatim since they carry inline context.
	Text string

	Agents  []string
	Skills  []string
	Files   []string
	Folders []string
	Tools   []string
}

// Parse extracts mentions from free text. When stripping leaves the prompt
// empty but agent or skill mentions exist, a directive sentence is
// synthesized so the agent still receives an actionable instruction.
func Parse(text string) Result {
	var r Result

	cleaned := tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		kind, name := m[1], m[2]

		switch kind {
		case "file":
			r.Files = append(r.Files, name)
			return tok
		case "folder":
			r.Folders = append(r.Folders, name)
			return tok
		case "agent":
			r.Agents = append(r.Agents, name)
			return ""
		case "skill":
			r.Skills = append(r.Skills, name)
			return ""
		case "tool":
			if toolNameRe.MatchString(name) {
				r.Tools = append(r.Tools, name)
			}
			return ""
		}
		return tok
	})

	cleaned = strings.TrimSpace(collapseSpaces(cleaned))

	if cleaned == "" && (len(r.Agents) > 0 || len(r.Skills) > 0) {
		cleaned = directive(r.Agents, r.Skills)
	}

	r.Text = cleaned
	return r
}

// collapseSpaces removes runs of spaces left behind by stripped tokens
// without touching newlines.
func collapseSpaces(s string) string {
	var b strings.Builder
	prevSpace := false
	for _, c := range s {
		if c == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(c)
	}
	return b.String()
}

func directive(agents, skills []string) string {
	var parts []string
	if len(agents) > 0 {
		parts = append(parts, fmt.Sprintf("use the %s agent(s)", strings.Join(agents, ", ")))
	}
	if len(skills) > 0 {
		parts = append(parts, fmt.Sprintf("apply the %s skill(s)", strings.Join(skills, ", ")))
	}
	return "Please " + strings.Join(parts, " and ") + "."
}
