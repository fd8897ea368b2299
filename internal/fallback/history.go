package fallback

import (
	"strings"

	"github.com/calegria/deskagent/internal/config"
	"github.com/calegria/deskagent/internal/message"
)

// Digest renders prior messages into a plain-text transcript that can be
// inlined into a fallback prompt. Each entry is truncated to truncateChars
// runes; tool parts are summarized by name rather than replayed.
func Digest(history []message.Message, truncateChars int) string {
	if len(history) == 0 {
		return ""
	}
	if truncateChars <= 0 {
		truncateChars = config.DefaultHistoryTruncate
	}

	var b strings.Builder
	for _, msg := range history {
		label := "User"
		if msg.Role == message.RoleAssistant {
			label = "Assistant"
		}

		text := msg.TextContent()
		if text == "" {
			if name := firstToolName(msg); name != "" {
				text = "[ran tool: " + name + "]"
			} else {
				continue
			}
		}

		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(truncate(text, truncateChars))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt combines the history digest and the new turn into the single
// prompt fallback endpoints receive.
func BuildPrompt(req Request) string {
	digest := Digest(req.History, req.TruncateChars)
	if digest == "" {
		return req.Prompt
	}
	return "Previous conversation:\n" + digest + "\n\nCurrent request:\n" + req.Prompt
}

func firstToolName(msg message.Message) string {
	for _, p := range msg.Parts {
		if p.Type == message.PartTool {
			return p.ToolName
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…[truncated]"
}
