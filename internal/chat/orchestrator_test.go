package chat

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/approval"
	"github.com/calegria/deskagent/internal/config"
	"github.com/calegria/deskagent/internal/fallback"
	"github.com/calegria/deskagent/internal/mcp"
	"github.com/calegria/deskagent/internal/message"
	"github.com/calegria/deskagent/internal/registry"
	"github.com/calegria/deskagent/internal/store"
	"github.com/calegria/deskagent/internal/workspace"
)

func newTestOrchestrator(t *testing.T, rt agent.Runtime) (*Orchestrator, *store.FileStore) {
	o, st, _ := newTestOrchestratorWithCacheDir(t, rt)
	return o, st
}

func newTestOrchestratorWithCacheDir(t *testing.T, rt agent.Runtime) (*Orchestrator, *store.FileStore, string) {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cacheDir := t.TempDir()
	caches := NewCaches(
		mcp.NewConfigCache(filepath.Join(cacheDir, "mcp.json")),
		mcp.NewStatusCache(filepath.Join(cacheDir, "status.json")),
		workspace.NewInitCache(),
		func() agent.Runtime { return rt },
	)

	o := New(Deps{
		Store:    st,
		Registry: registry.New(),
		Gate:     approval.NewGate(),
		Caches:   caches,
		Resolver: &workspace.Resolver{Home: t.TempDir()},
		Settings: config.NewSettings(),
		Online:   func(ctx context.Context) bool { return true },
	})
	return o, st, cacheDir
}

func collect(t *testing.T, ch <-chan message.Chunk) []message.Chunk {
	t.Helper()
	var chunks []message.Chunk
	timeout := time.After(5 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return chunks
			}
			chunks = append(chunks, c)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func countType(chunks []message.Chunk, typ message.ChunkType) int {
	n := 0
	for _, c := range chunks {
		if c.Type == typ {
			n++
		}
	}
	return n
}

// stallRuntime replays its events then blocks until cancelled, simulating a
// subprocess that is still running.
type stallRuntime struct {
	events []agent.RawMessage
}

func (r *stallRuntime) Query(ctx context.Context, opts agent.Options) (<-chan agent.RawMessage, error) {
	ch := make(chan agent.RawMessage)
	go func() {
		defer close(ch)
		for _, e := range r.events {
			select {
			case ch <- e:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return ch, nil
}

func toolUse(id, name, input string) agent.RawMessage {
	return agent.RawMessage{
		Kind: agent.KindAssistant,
		Blocks: []agent.Block{{
			Type:  agent.BlockToolUse,
			ID:    id,
			Name:  name,
			Input: json.RawMessage(input),
		}},
	}
}

func TestEndToEndScenario(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		{Kind: agent.KindInit, SessionID: "resume-1"},
		{Kind: agent.KindTextDelta, Text: "o"},
		{Kind: agent.KindTextDelta, Text: "k"},
		{Kind: agent.KindTextDelta, Text: "."},
		toolUse("tool-1", "Glob", `{"pattern":"*"}`),
		{Kind: agent.KindToolResult, InvocationID: "tool-1", Output: json.RawMessage(`["a.go"]`)},
		{Kind: agent.KindTextDelta, Text: "done"},
		{Kind: agent.KindResult, SessionID: "resume-1", Usage: &message.Usage{InputTokens: 5, OutputTokens: 7}},
	}}
	o, st := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "list files",
		WorkingDir:     t.TempDir(),
		Mode:           ModeAgent,
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := countType(chunks, message.ChunkFinish); got != 1 {
		t.Errorf("finish chunks = %d, want 1", got)
	}
	if got := countType(chunks, message.ChunkError); got != 0 {
		t.Errorf("unexpected error chunks: %d", got)
	}

	state, err := st.SessionState("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if state.StreamID != "" {
		t.Error("stream marker not cleared")
	}
	if state.ResumeID != "resume-1" {
		t.Errorf("resume id = %q", state.ResumeID)
	}
	if len(state.Messages) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(state.Messages))
	}

	parts := state.Messages[1].Parts
	if len(parts) != 3 {
		t.Fatalf("assistant parts = %d, want 3: %+v", len(parts), parts)
	}
	if parts[0].Type != message.PartText || parts[0].Text != "ok." {
		t.Errorf("part 0 = %+v, want text %q", parts[0], "ok.")
	}
	if parts[1].Type != message.PartTool || parts[1].ToolName != "Glob" ||
		parts[1].State != message.ToolStateResult {
		t.Errorf("part 1 = %+v, want Glob call→result", parts[1])
	}
	if parts[2].Type != message.PartText || parts[2].Text != "done" {
		t.Errorf("part 2 = %+v, want text %q", parts[2], "done")
	}
}

func TestFinalizationInvariant(t *testing.T) {
	prefix := []agent.RawMessage{
		{Kind: agent.KindInit, SessionID: "resume-1"},
		{Kind: agent.KindTextDelta, Text: "partial"},
	}

	cases := []struct {
		name  string
		rt    agent.Runtime
		abort bool
	}{
		{
			name: "normal completion",
			rt: &agent.FakeRuntime{Script: append(append([]agent.RawMessage{}, prefix...),
				agent.RawMessage{Kind: agent.KindTextEnd},
				agent.RawMessage{Kind: agent.KindResult, SessionID: "resume-1"})},
		},
		{
			name:  "mid-stream abort",
			rt:    &stallRuntime{events: prefix},
			abort: true,
		},
		{
			name: "subprocess crash",
			rt: &agent.FakeRuntime{Script: append(append([]agent.RawMessage{}, prefix...),
				agent.RawMessage{Kind: agent.KindResult, IsError: true, Err: "signal: killed"})},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, st := newTestOrchestrator(t, tc.rt)

			ch, err := o.Stream(t.Context(), Request{
				ConversationID: "conv-1",
				SessionID:      "sess-1",
				Prompt:         "go",
				WorkingDir:     t.TempDir(),
			})
			if err != nil {
				t.Fatal(err)
			}

			if tc.abort {
				// Wait for the text delta to arrive, then cancel.
				deadline := time.After(5 * time.Second)
				for {
					var c message.Chunk
					select {
					case c = <-ch:
					case <-deadline:
						t.Fatal("text delta never arrived")
					}
					if c.Type == message.ChunkTextDelta {
						break
					}
				}
				if !o.Cancel("sess-1") {
					t.Fatal("cancel found no active session")
				}
			}
			collect(t, ch)

			state, err := st.SessionState("sess-1")
			if err != nil {
				t.Fatal(err)
			}
			if state.StreamID != "" {
				t.Error("stream marker not cleared")
			}
			if len(state.Messages) != 2 {
				t.Fatalf("messages = %d, want user + assistant", len(state.Messages))
			}
			parts := state.Messages[1].Parts
			if len(parts) != 1 || parts[0].Type != message.PartText || parts[0].Text != "partial" {
				t.Errorf("parts = %+v, want single text %q", parts, "partial")
			}
		})
	}
}

func TestDuplicateSuppression(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		{Kind: agent.KindTextDelta, Text: "reply"},
		{Kind: agent.KindResult},
	}}
	o, st := newTestOrchestrator(t, rt)

	seed := store.SessionState{Messages: []message.Message{message.NewUserMessage("hello")}}
	if err := st.ReplaceSessionState("sess-1", seed); err != nil {
		t.Fatal(err)
	}

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hello",
		WorkingDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	state, _ := st.SessionState("sess-1")
	users := 0
	for _, m := range state.Messages {
		if m.IsUserText("hello") {
			users++
		}
	}
	if users != 1 {
		t.Errorf("user messages with same text = %d, want 1", users)
	}
}

func TestPlanModeRestriction(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		toolUse("t-bash", "Bash", `{"command":"rm -rf /"}`),
		toolUse("t-edit-go", "Edit", `{"file_path":"/p/main.go","old_string":"a","new_string":"b"}`),
		toolUse("t-edit-md", "Edit", `{"file_path":"/p/PLAN.md","old_string":"a","new_string":"b"}`),
		{Kind: agent.KindResult},
	}}
	o, st := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "plan it",
		WorkingDir:     t.TempDir(),
		Mode:           ModePlan,
	})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	state, _ := st.SessionState("sess-1")
	denied := make(map[string]bool)
	for _, p := range state.Messages[1].Parts {
		if p.Type == message.PartTool && strings.Contains(string(p.Output), "plan mode") {
			denied[p.InvocationID] = true
		}
	}

	if !denied["t-bash"] {
		t.Error("Bash must be denied in plan mode")
	}
	if !denied["t-edit-go"] {
		t.Error("Edit on a non-markdown path must be denied in plan mode")
	}
	if denied["t-edit-md"] {
		t.Error("Edit on a markdown path must be allowed in plan mode")
	}
}

func TestExitPlanStopsStream(t *testing.T) {
	rt := &stallRuntime{events: []agent.RawMessage{
		toolUse("t-exit", toolExitPlan, `{"plan":"do things"}`),
		{Kind: agent.KindToolResult, InvocationID: "t-exit", Output: json.RawMessage(`"ok"`)},
		{Kind: agent.KindTextDelta, Text: "should never arrive"},
	}}
	o, st := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "plan it",
		WorkingDir:     t.TempDir(),
		Mode:           ModePlan,
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := countType(chunks, message.ChunkFinish); got != 1 {
		t.Errorf("finish chunks = %d, want 1", got)
	}
	state, _ := st.SessionState("sess-1")
	for _, p := range state.Messages[1].Parts {
		if p.Type == message.PartText && strings.Contains(p.Text, "should never arrive") {
			t.Error("stream kept going after exit-plan completion")
		}
	}
}

func TestEmptyResponse(t *testing.T) {
	o, _ := newTestOrchestrator(t, &agent.FakeRuntime{})

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	found := false
	for _, c := range chunks {
		if c.Type == message.ChunkError && c.ErrorCategory == message.ErrEmptyResponse {
			found = true
		}
	}
	if !found {
		t.Errorf("expected empty-response error, got %+v", chunks)
	}
}

func TestWorkspaceErrorNeverStartsRuntime(t *testing.T) {
	rt := &agent.FakeRuntime{}
	o, _ := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     "does/not/exist",
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if chunks[len(chunks)-1].ErrorCategory != message.ErrWorkspacePath {
		t.Errorf("expected workspace-path-error, got %+v", chunks)
	}
	if rt.Calls != 0 {
		t.Error("runtime must not start on workspace failure")
	}
}

func TestWorkspaceFallsBackToProjectPath(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{{Kind: agent.KindResult}}}
	o, st := newTestOrchestrator(t, rt)

	projectDir := t.TempDir()
	if err := st.SetProjectPath("conv-1", projectDir); err != nil {
		t.Fatal(err)
	}

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     "deleted/worktree",
	})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	if rt.LastOptions.WorkingDir != projectDir {
		t.Errorf("working dir = %q, want project fallback %q", rt.LastOptions.WorkingDir, projectDir)
	}
}

func TestAuthFailureEmitsNeedAuth(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		{Kind: agent.KindResult, IsError: true, Err: "authentication_error: OAuth token has expired"},
	}}
	o, _ := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := countType(chunks, message.ChunkNeedAuth); got != 1 {
		t.Errorf("need-auth chunks = %d, want 1", got)
	}
	if got := countType(chunks, message.ChunkError); got != 0 {
		t.Error("auth failure must use the need-auth signal, not a generic error")
	}
}

func TestAskUserQuestionSuspension(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		toolUse("t-q", toolAskUser, `{"questions":[{"question":"Proceed?","options":[{"label":"Yes"}]}]}`),
		{Kind: agent.KindTextDelta, Text: "continuing"},
		{Kind: agent.KindResult},
	}}
	o, st := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	var chunks []message.Chunk
	timeout := time.After(5 * time.Second)
	for {
		var c message.Chunk
		var ok bool
		select {
		case c, ok = <-ch:
		case <-timeout:
			t.Fatal("stream did not close")
		}
		if !ok {
			break
		}
		chunks = append(chunks, c)
		if c.Type == message.ChunkQuestion {
			if len(c.Questions) != 1 || c.Questions[0].Question != "Proceed?" {
				t.Errorf("question chunk = %+v", c)
			}
			// The question chunk can arrive a beat before the gate entry
			// exists; poll briefly.
			resolved := false
			for i := 0; i < 200 && !resolved; i++ {
				resolved = o.ResolveApproval("t-q", approval.Decision{Approved: true, Message: "Yes"})
				if !resolved {
					time.Sleep(5 * time.Millisecond)
				}
			}
			if !resolved {
				t.Error("approval was never pending")
			}
		}
	}

	// The persisted output round-trips through the store's re-serialization,
	// so decode it instead of matching raw bytes.
	state, _ := st.SessionState("sess-1")
	foundAnswer := false
	for _, p := range state.Messages[1].Parts {
		if p.Type == message.PartTool && p.InvocationID == "t-q" {
			var d approval.Decision
			if err := json.Unmarshal(p.Output, &d); err != nil {
				t.Fatalf("tool output is not a decision: %v", err)
			}
			if d.Approved && d.Message == "Yes" {
				foundAnswer = true
			}
		}
	}
	if !foundAnswer {
		t.Error("resolved decision not recorded as the tool output")
	}
	if got := countType(chunks, message.ChunkFinish); got != 1 {
		t.Errorf("finish chunks = %d, want 1", got)
	}
}

func TestControlRequestAnsweredThroughGate(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		{
			Kind:      agent.KindControlRequest,
			RequestID: "req-1",
			ToolName:  toolAskUser,
			Input:     json.RawMessage(`{"questions":[{"question":"Proceed?"}]}`),
		},
		toolUse("t-q", toolAskUser, `{"questions":[{"question":"Proceed?"}]}`),
		{Kind: agent.KindToolResult, InvocationID: "t-q", Output: json.RawMessage(`"Yes"`)},
		{Kind: agent.KindResult},
	}}
	o, _ := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}

	questions := 0
	timeout := time.After(5 * time.Second)
	for {
		var c message.Chunk
		var ok bool
		select {
		case c, ok = <-ch:
		case <-timeout:
			t.Fatal("stream did not close")
		}
		if !ok {
			break
		}
		if c.Type == message.ChunkQuestion {
			questions++
			resolved := false
			for i := 0; i < 200 && !resolved; i++ {
				resolved = o.ResolveApproval(c.InvocationID, approval.Decision{Approved: true, Message: "Yes"})
				if !resolved {
					time.Sleep(5 * time.Millisecond)
				}
			}
			if !resolved {
				t.Error("approval was never pending")
			}
		}
	}

	// The boundary collects the answer once; the tool-use event for the
	// same call must not prompt a second time.
	if questions != 1 {
		t.Errorf("question chunks = %d, want 1", questions)
	}

	approvals := rt.Approvals()
	if len(approvals) != 1 {
		t.Fatalf("recorded approvals = %d, want 1", len(approvals))
	}
	if approvals[0].Behavior != agent.BehaviorAllow {
		t.Errorf("behavior = %q, want allow", approvals[0].Behavior)
	}
	var d approval.Decision
	if err := json.Unmarshal(approvals[0].UpdatedInput, &d); err != nil {
		t.Fatalf("updated input is not a decision: %v", err)
	}
	if !d.Approved || d.Message != "Yes" {
		t.Errorf("decision conveyed to the runtime = %+v", d)
	}
}

func TestControlRequestPlanModeDenied(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{
		{
			Kind:      agent.KindControlRequest,
			RequestID: "req-1",
			ToolName:  "Bash",
			Input:     json.RawMessage(`{"command":"rm -rf /tmp/x"}`),
		},
		{Kind: agent.KindResult},
	}}
	o, _ := newTestOrchestrator(t, rt)

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
		Mode:           ModePlan,
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if got := countType(chunks, message.ChunkQuestion); got != 0 {
		t.Errorf("question chunks = %d, want 0", got)
	}
	approvals := rt.Approvals()
	if len(approvals) != 1 {
		t.Fatalf("recorded approvals = %d, want 1", len(approvals))
	}
	if approvals[0].Behavior != agent.BehaviorDeny || approvals[0].Message == "" {
		t.Errorf("plan mode must deny with a reason, got %+v", approvals[0])
	}
}

func TestMCPFilteringPassedToRuntime(t *testing.T) {
	rt := &agent.FakeRuntime{Script: []agent.RawMessage{{Kind: agent.KindResult}}}
	o, _, cacheDir := newTestOrchestratorWithCacheDir(t, rt)

	workDir := t.TempDir()
	writeMCPConfig(t, filepath.Join(cacheDir, "mcp.json"), workDir,
		[]string{"serverA", "serverB", "serverC", "serverD"})
	for server, status := range map[string]string{
		"serverA": mcp.StatusFailed,
		"serverB": mcp.StatusNeedsAuth,
		"serverC": mcp.StatusHealthy,
	} {
		if err := o.deps.Caches.Status.SetStatus(workDir, server, status); err != nil {
			t.Fatal(err)
		}
	}

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     workDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	got := rt.LastOptions.MCPServers
	want := []string{"serverC", "serverD"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("filtered servers = %v, want %v", got, want)
	}
}

func TestOfflineFallbackSubstitution(t *testing.T) {
	rt := &agent.FakeRuntime{}
	fb := &fakeStreamer{chunks: []message.Chunk{
		{Type: message.ChunkTextDelta, Text: "local reply"},
		{Type: message.ChunkTextEnd},
		{Type: message.ChunkFinish},
	}}
	o, st := newTestOrchestrator(t, rt)
	o.deps.Online = func(ctx context.Context) bool { return false }
	o.deps.Offline = fb

	ch, err := o.Stream(t.Context(), Request{
		ConversationID: "conv-1",
		SessionID:      "sess-1",
		Prompt:         "hi",
		WorkingDir:     t.TempDir(),
		HistoryEnabled: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	chunks := collect(t, ch)

	if rt.Calls != 0 {
		t.Error("subprocess must not start when offline")
	}
	if got := countType(chunks, message.ChunkFinish); got != 1 {
		t.Errorf("finish chunks = %d, want 1", got)
	}
	state, _ := st.SessionState("sess-1")
	if len(state.Messages) != 2 || state.Messages[1].TextContent() != "local reply" {
		t.Errorf("persisted messages = %+v", state.Messages)
	}
}

type fakeStreamer struct {
	chunks []message.Chunk
}

func (f *fakeStreamer) Stream(ctx context.Context, req fallback.Request) <-chan message.Chunk {
	ch := make(chan message.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return ch
}

func writeMCPConfig(t *testing.T, path, projectPath string, servers []string) {
	t.Helper()
	serverMap := make(map[string]any, len(servers))
	for _, s := range servers {
		serverMap[s] = map[string]any{"command": "echo"}
	}
	data, err := json.Marshal(map[string]any{
		"projects": map[string]any{
			projectPath: map[string]any{"mcpServers": serverMap},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}
