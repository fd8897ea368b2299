// Package tui is the terminal front-end: a bubbletea program that sends
// prompts through the orchestrator and renders the resulting chunk stream
// via the client-side stream adapter.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/calegria/deskagent/internal/approval"
	"github.com/calegria/deskagent/internal/chat"
	"github.com/calegria/deskagent/internal/image"
	"github.com/calegria/deskagent/internal/message"
	"github.com/calegria/deskagent/internal/uistream"
)

// App bundles what the TUI needs to run one conversation.
type App struct {
	Orchestrator *chat.Orchestrator
	WorkingDir   string

	ConversationID string
	SessionID      string

	// PlanMode starts the session in plan mode; tab toggles it afterwards.
	PlanMode bool
}

// Run starts the interactive program.
func Run(app *App) error {
	if app.ConversationID == "" {
		app.ConversationID = uuid.NewString()
	}
	if app.SessionID == "" {
		app.SessionID = uuid.NewString()
	}

	p := tea.NewProgram(
		newModel(app),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// entry is one rendered line group in the transcript.
type entry struct {
	role     string // "user", "assistant", "tool", "system", "error"
	content  string
	toolName string
	done     bool
}

type (
	chunkMsg        message.Chunk
	streamClosedMsg struct{}
)

type model struct {
	app *App

	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	entries   []entry
	textBuf   strings.Builder
	streaming bool
	planMode  bool
	pending   []*image.Attachment

	sink    *uistream.ChannelSink
	adapter *uistream.Adapter
	ui      *uistream.UIState

	lastError *uistream.Presentation

	width  int
	height int
	ready  bool
}

func newModel(app *App) *model {
	ta := textarea.New()
	ta.Placeholder = "Ask the agent... (@[file:path] to reference, tab toggles plan mode)"
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &model{
		app:      app,
		textarea: ta,
		spinner:  sp,
		planMode: app.PlanMode,
		ui:       uistream.NewUIState(),
	}
}

func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

// waitChunk reads the next chunk from the sink.
func waitChunk(sink *uistream.ChannelSink) tea.Cmd {
	return func() tea.Msg {
		c, ok := <-sink.C()
		if !ok {
			return streamClosedMsg{}
		}
		return chunkMsg(c)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		m.textarea.SetWidth(msg.Width - 2)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case chunkMsg:
		m.handleChunk(message.Chunk(msg))
		m.refresh()
		return m, waitChunk(m.sink)

	case streamClosedMsg:
		m.streaming = false
		m.flushText()
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.adapter != nil {
			m.adapter.Abort()
		}
		return m, tea.Quit

	case tea.KeyEsc:
		if m.streaming && m.adapter != nil {
			m.adapter.Abort()
			m.streaming = false
			m.entries = append(m.entries, entry{role: "system", content: "Cancelled."})
			m.refresh()
		}
		return m, nil

	case tea.KeyTab:
		if !m.streaming {
			m.planMode = !m.planMode
		}
		return m, nil

	case tea.KeyCtrlV:
		m.pasteImage()
		return m, nil

	case tea.KeyEnter:
		if q := m.ui.Question(); q != nil {
			return m, m.answerQuestion(q)
		}
		if !m.streaming {
			return m, m.send()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// pasteImage attaches a clipboard image to the next turn.
func (m *model) pasteImage() {
	a, err := image.FromClipboard()
	if err != nil {
		m.entries = append(m.entries, entry{role: "error", content: err.Error()})
		m.refresh()
		return
	}
	if a == nil {
		return
	}
	m.pending = append(m.pending, a)
	m.entries = append(m.entries, entry{
		role:    "system",
		content: fmt.Sprintf("Attached %s (%s)", a.Filename, image.FormatBytes(a.Size())),
	})
	m.refresh()
}

// send submits the textarea content as a new streaming turn.
func (m *model) send() tea.Cmd {
	prompt := strings.TrimSpace(m.textarea.Value())
	if prompt == "" && len(m.pending) == 0 {
		return nil
	}
	m.textarea.Reset()
	m.entries = append(m.entries, entry{role: "user", content: prompt})
	m.lastError = nil

	mode := chat.ModeAgent
	if m.planMode {
		mode = chat.ModePlan
	}

	var images []chat.Image
	for _, a := range m.pending {
		images = append(images, chat.Image{
			Base64Data: a.Base64(),
			MediaType:  a.MediaType,
			Filename:   a.Filename,
		})
	}
	m.pending = nil

	ch, err := m.app.Orchestrator.Stream(context.Background(), chat.Request{
		ConversationID: m.app.ConversationID,
		SessionID:      m.app.SessionID,
		Prompt:         prompt,
		WorkingDir:     m.app.WorkingDir,
		Mode:           mode,
		HistoryEnabled: true,
		Images:         images,
	})
	if err != nil {
		m.entries = append(m.entries, entry{role: "error", content: err.Error()})
		m.refresh()
		return nil
	}

	m.sink = uistream.NewChannelSink(64)
	m.adapter = uistream.New(m.sink, m.ui, func() {
		m.app.Orchestrator.Cancel(m.app.SessionID)
	})
	go m.adapter.Run(ch)

	m.streaming = true
	m.refresh()
	return tea.Batch(waitChunk(m.sink), m.spinner.Tick)
}

// answerQuestion resolves the pending approval with the typed answer.
func (m *model) answerQuestion(q *uistream.PendingQuestion) tea.Cmd {
	answer := strings.TrimSpace(m.textarea.Value())
	m.textarea.Reset()

	m.app.Orchestrator.ResolveApproval(q.InvocationID, approval.Decision{
		Approved: answer != "" && !strings.EqualFold(answer, "no"),
		Message:  answer,
	})
	return nil
}

// handleChunk folds one chunk into the transcript.
func (m *model) handleChunk(c message.Chunk) {
	switch c.Type {
	case message.ChunkTextDelta:
		m.textBuf.WriteString(c.Text)

	case message.ChunkTextEnd:
		m.flushText()

	case message.ChunkToolInput:
		m.flushText()
		m.entries = append(m.entries, entry{role: "tool", toolName: c.ToolName})

	case message.ChunkToolOutput:
		for i := len(m.entries) - 1; i >= 0; i-- {
			if m.entries[i].role == "tool" && !m.entries[i].done {
				m.entries[i].done = true
				break
			}
		}

	case message.ChunkSystem:
		m.flushText()
		m.entries = append(m.entries, entry{role: "system", content: c.Marker})

	case message.ChunkNeedAuth:
		p := uistream.Present(c)
		m.lastError = &p

	case message.ChunkError:
		m.flushText()
		p := uistream.Present(c)
		m.lastError = &p
	}
}

func (m *model) flushText() {
	if m.textBuf.Len() == 0 {
		return
	}
	m.entries = append(m.entries, entry{role: "assistant", content: m.textBuf.String()})
	m.textBuf.Reset()
}
