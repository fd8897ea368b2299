package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/calegria/deskagent/internal/uistream"
)

// refresh rebuilds the viewport content from the transcript.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *model) renderTranscript() string {
	var b strings.Builder

	for _, e := range m.entries {
		switch e.role {
		case "user":
			b.WriteString(userPromptStyle.Render("> "))
			b.WriteString(e.content)
		case "assistant":
			b.WriteString(m.renderMarkdown(e.content))
		case "tool":
			line := "⚒ " + e.toolName
			if e.done {
				b.WriteString(toolDoneStyle.Render(line + " ✓"))
			} else {
				b.WriteString(toolStyle.Render(line + " …"))
			}
		case "system":
			b.WriteString(systemStyle.Render("· " + e.content))
		case "error":
			b.WriteString(errorBodyStyle.Render(e.content))
		}
		b.WriteString("\n")
	}

	// In-flight text renders raw; markdown waits for the flush.
	if m.textBuf.Len() > 0 {
		b.WriteString(m.textBuf.String())
		b.WriteString("\n")
	}

	return b.String()
}

// renderMarkdown pretty-prints finished assistant text. Failures fall back
// to the raw text.
func (m *model) renderMarkdown(text string) string {
	width := m.width - 2
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m *model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if q := m.ui.Question(); q != nil {
		b.WriteString(m.renderQuestion(q))
		b.WriteString("\n")
	}

	if m.lastError != nil {
		b.WriteString(errorTitleStyle.Render(m.lastError.Title))
		b.WriteString(" ")
		b.WriteString(errorBodyStyle.Render(m.lastError.Description))
		if m.lastError.Action != nil {
			b.WriteString(statusStyle.Render("  [" + m.lastError.Action.Label + "]"))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.textarea.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

// renderQuestion draws the pending question box. The user types the answer
// into the regular textarea and submits with enter.
func (m *model) renderQuestion(q *uistream.PendingQuestion) string {
	var b strings.Builder
	for i, question := range q.Questions {
		if i > 0 {
			b.WriteString("\n")
		}
		if question.Header != "" {
			b.WriteString(question.Header + "\n")
		}
		b.WriteString(question.Question)
		for _, opt := range question.Options {
			line := "• " + opt.Label
			if opt.Description != "" {
				line += " — " + opt.Description
			}
			b.WriteString("\n" + optionStyle.Render(line))
		}
	}
	if q.DiffPreview != "" {
		b.WriteString("\n\n" + systemStyle.Render(q.DiffPreview))
	}
	return questionStyle.Width(m.width - 4).Render(b.String())
}

func (m *model) statusLine() string {
	mode := "agent"
	if m.planMode {
		mode = "plan"
	}

	left := fmt.Sprintf("[%s]", mode)
	if m.streaming {
		left += " " + m.spinner.View() + "streaming"
	}
	if m.ui.Compacting() {
		left += " · compacting context"
	}

	meta := m.ui.Meta()
	right := ""
	if meta.Usage != nil {
		right = fmt.Sprintf("%d in / %d out", meta.Usage.InputTokens, meta.Usage.OutputTokens)
		if meta.CostUSD > 0 {
			right += fmt.Sprintf(" · $%.4f", meta.CostUSD)
		}
	}

	pad := m.width - runewidth.StringWidth(left) - runewidth.StringWidth(right)
	if pad < 1 {
		pad = 1
	}
	return statusStyle.Render(left + strings.Repeat(" ", pad) + right)
}
