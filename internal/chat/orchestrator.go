// Package chat drives one streaming agent turn end to end: it validates the
// request, resolves the workspace, prepares context from the store and
// caches, streams runtime events through the transformer, accumulates the
// assistant message, and finalizes through a single path no matter how the
// stream ended.
package chat

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/approval"
	"github.com/calegria/deskagent/internal/config"
	"github.com/calegria/deskagent/internal/fallback"
	"github.com/calegria/deskagent/internal/log"
	"github.com/calegria/deskagent/internal/mention"
	"github.com/calegria/deskagent/internal/message"
	"github.com/calegria/deskagent/internal/registry"
	"github.com/calegria/deskagent/internal/skill"
	"github.com/calegria/deskagent/internal/store"
	"github.com/calegria/deskagent/internal/transform"
	"github.com/calegria/deskagent/internal/workspace"
)

// Permission modes accepted by Request.Mode.
const (
	ModeAgent = "agent"
	ModePlan  = "plan"
)

// chunkBuffer bounds the outbound chunk channel. The producer blocks when
// the consumer falls this far behind, which preserves ordering and keeps
// memory bounded.
const chunkBuffer = 64

// Image is an inbound image attachment.
type Image struct {
	Base64Data string
	MediaType  string
	Filename   string
}

// Request is one "send message" invocation from the UI.
type Request struct {
	ConversationID string
	SessionID      string
	Prompt         string
	WorkingDir     string
	Mode           string // "plan" or "agent"

	ResumeID          string
	Model             string
	MaxThinkingTokens int
	HistoryEnabled    bool
	Images            []Image

	// CustomModel bypasses the agent subprocess and talks to an
	// Anthropic-compatible endpoint directly.
	CustomModel *config.CustomModel
}

// Deps are the injected collaborators. Everything is constructed at process
// start; the orchestrator never reaches for ambient globals.
type Deps struct {
	Store    store.Store
	Registry *registry.Registry
	Gate     *approval.Gate
	Caches   *Caches
	Resolver *workspace.Resolver
	Setup    *workspace.Setup
	Settings *config.Settings
	Skills   *skill.Loader

	// Online is the connectivity probe; nil uses the default probe.
	Online func(ctx context.Context) bool
	// Offline is the local fallback streamer; nil disables offline fallback.
	Offline fallback.Streamer
	// NewCustom builds a streamer for a custom model config; nil uses the
	// direct Anthropic path.
	NewCustom func(cm config.CustomModel) fallback.Streamer
}

// Orchestrator multiplexes concurrent streaming sessions. One instance per
// process.
type Orchestrator struct {
	deps Deps
}

// New creates an orchestrator, filling in default probe and custom-model
// factory.
func New(deps Deps) *Orchestrator {
	if deps.Online == nil {
		probe := fallback.NewProbe()
		deps.Online = probe.Online
	}
	if deps.NewCustom == nil {
		deps.NewCustom = func(cm config.CustomModel) fallback.Streamer {
			return fallback.NewAnthropicStreamer(cm)
		}
	}
	return &Orchestrator{deps: deps}
}

// Stream starts one streaming turn. It returns a subscription channel that
// yields chunks in order and closes after a finish or error chunk. Only
// schema-level validation fails synchronously; everything after that is
// reported through the channel so the UI's state machine always observes a
// terminating chunk.
func (o *Orchestrator) Stream(ctx context.Context, req Request) (<-chan message.Chunk, error) {
	if req.ConversationID == "" || req.SessionID == "" {
		return nil, fmt.Errorf("conversation and session ids are required")
	}
	if strings.TrimSpace(req.Prompt) == "" && len(req.Images) == 0 {
		return nil, fmt.Errorf("prompt is empty")
	}
	switch req.Mode {
	case "":
		req.Mode = ModeAgent
	case ModeAgent, ModePlan:
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &session{
		o:         o,
		req:       req,
		out:       make(chan message.Chunk, chunkBuffer),
		cancel:    cancel,
		m:         newMachine(req.SessionID),
		toolNames: make(map[string]string),
	}
	go s.run(ctx)
	return s.out, nil
}

// Cancel aborts an active session. Idempotent; false when nothing was
// running under that id.
func (o *Orchestrator) Cancel(sessionID string) bool {
	return o.deps.Registry.Cancel(sessionID)
}

// Active reports whether a session is currently streaming.
func (o *Orchestrator) Active(sessionID string) bool {
	return o.deps.Registry.Has(sessionID)
}

// ResolveApproval answers a pending approval request from the UI.
func (o *Orchestrator) ResolveApproval(invocationID string, d approval.Decision) bool {
	return o.deps.Gate.Resolve(invocationID, d)
}

// --- Session ---

// session is the per-stream producer task. It owns the outbound channel and
// is the only writer to its sub-conversation row.
type session struct {
	o      *Orchestrator
	req    Request
	out    chan message.Chunk
	cancel context.CancelFunc
	m      *machine

	acc       message.Accumulator
	toolNames map[string]string // invocation id -> tool name

	// Context prepared before streaming.
	stateLoaded bool
	state       store.SessionState
	opts        agent.Options
	streamer    fallback.Streamer
	fbReq       fallback.Request

	errored  bool
	aborted  bool
	planDone bool

	// ctrlAnswered counts user questions already collected at the
	// permission boundary, so the later tool-input event for the same call
	// does not prompt a second time.
	ctrlMu       sync.Mutex
	ctrlAnswered int
}

func (s *session) run(ctx context.Context) {
	defer close(s.out)
	defer s.o.deps.Registry.Unregister(s.req.SessionID)
	defer s.cancel()

	s.o.deps.Registry.Register(s.req.SessionID, s.cancel)

	s.m.to(StateResolvingWorkspace)
	workDir, err := s.resolveWorkspace()
	if err != nil {
		s.emitError(ctx, message.ErrWorkspacePath, err.Error())
		s.finalize(ctx)
		return
	}

	s.m.to(StatePreparingContext)
	if err := s.prepareContext(ctx, workDir); err != nil {
		s.emitError(ctx, agent.ClassifyErr(err), err.Error())
		s.finalize(ctx)
		return
	}

	s.m.to(StateStreaming)
	if s.streamer != nil {
		s.streamFallback(ctx)
	} else {
		s.streamRuntime(ctx)
	}

	s.finalize(ctx)
}

// resolveWorkspace resolves the requested working directory, falling back to
// the conversation's stored project path when the requested one is gone.
// Recovers from a deleted ephemeral worktree by using the stable checkout.
func (s *session) resolveWorkspace() (string, error) {
	dir, err := s.o.deps.Resolver.Resolve(s.req.WorkingDir)
	if err == nil {
		// Pin the first resolved checkout as the conversation's stable
		// path. Later turns may run in ephemeral worktrees; those must
		// not overwrite the fallback.
		if _, ok := s.o.deps.Store.ProjectPath(s.req.ConversationID); !ok {
			if serr := s.o.deps.Store.SetProjectPath(s.req.ConversationID, dir); serr != nil {
				log.Logger().Warn("Failed to record project path", zap.Error(serr))
			}
		}
		return dir, nil
	}

	if projectPath, ok := s.o.deps.Store.ProjectPath(s.req.ConversationID); ok {
		if fallbackDir, ferr := s.o.deps.Resolver.Resolve(projectPath); ferr == nil {
			log.Logger().Info("Workspace fell back to project path",
				zap.String("session", s.req.SessionID),
				zap.String("requested", s.req.WorkingDir),
				zap.String("fallback", fallbackDir))
			return fallbackDir, nil
		}
	}
	return "", fmt.Errorf("workspace path %s could not be resolved: %w", s.req.WorkingDir, err)
}

// prepareContext loads prior messages, suppresses duplicate resubmission,
// sets the stream marker, parses mentions, filters MCP servers, resolves the
// model, and picks the streaming path (subprocess, custom model, or offline
// fallback).
func (s *session) prepareContext(ctx context.Context, workDir string) error {
	st, err := s.o.deps.Store.SessionState(s.req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to load session state: %w", err)
	}

	history := st.Messages

	// Duplicate resubmission: the last stored message already being this
	// exact user text means the earlier turn died before the assistant
	// reply was persisted. Reuse it instead of appending a twin.
	last := len(st.Messages) - 1
	if last >= 0 && st.Messages[last].IsUserText(s.req.Prompt) {
		history = st.Messages[:last]
		log.Logger().Debug("Duplicate resubmission reused",
			zap.String("session", s.req.SessionID))
	} else {
		st.Messages = append(st.Messages, message.NewUserMessage(s.req.Prompt))
	}

	st.StreamID = uuid.NewString()
	if err := s.o.deps.Store.ReplaceSessionState(s.req.SessionID, st); err != nil {
		return fmt.Errorf("failed to persist stream marker: %w", err)
	}
	s.state = st
	s.stateLoaded = true

	parsed := mention.Parse(s.req.Prompt)
	s.checkMentions(parsed)
	prompt := parsed.Text

	settings := s.o.deps.Settings

	configDir := ""
	if s.o.deps.Setup != nil {
		configDir, err = s.o.deps.Setup.EnsureConfigDir(s.req.SessionID)
		if err != nil {
			// Setup failure degrades to the shared config, not a dead turn.
			log.Logger().Warn("Session config dir setup failed", zap.Error(err))
			configDir = ""
		}
	}

	if paths := s.saveImages(configDir); len(paths) > 0 {
		var b strings.Builder
		b.WriteString(prompt)
		for _, p := range paths {
			fmt.Fprintf(&b, "\n[Attached image: %s]", p)
		}
		prompt = b.String()
	}

	servers := s.mcpServers(workDir)

	model := s.req.Model
	if model == "" {
		model = settings.Model
	}
	thinking := s.req.MaxThinkingTokens
	if thinking == 0 {
		thinking = settings.MaxThinkingTokens
	}
	resumeID := s.req.ResumeID
	if resumeID == "" {
		resumeID = st.ResumeID
	}

	// Path selection: custom model first, then offline fallback, then the
	// agent subprocess.
	switch {
	case s.req.CustomModel != nil:
		s.streamer = s.o.deps.NewCustom(*s.req.CustomModel)

	case s.o.deps.Offline != nil && !s.o.deps.Online(ctx):
		log.Logger().Info("Offline, substituting local fallback model",
			zap.String("session", s.req.SessionID),
			zap.String("model", settings.OfflineModel))
		s.streamer = s.o.deps.Offline
	}

	if s.streamer != nil {
		s.fbReq = fallback.Request{
			Prompt:        prompt,
			TruncateChars: settings.HistoryTruncateChars,
		}
		if s.req.HistoryEnabled {
			s.fbReq.History = history
		}
		return nil
	}

	s.opts = agent.Options{
		Prompt:            prompt,
		WorkingDir:        workDir,
		PermissionMode:    s.req.Mode,
		Model:             model,
		ResumeID:          resumeID,
		MaxThinkingTokens: thinking,
		ConfigDir:         configDir,
		MCPServers:        servers,
		Env:               envList(settings.Env),
		ApproveTool:       s.approveTool,
	}
	return nil
}

// approveTool answers the runtime's permission requests. Plan-mode rules
// deny restricted tools at the boundary; user questions are collected through
// the gate and travel back as the updated tool input. Everything else is
// allowed — the runtime already enforces its own permission mode.
func (s *session) approveTool(ctx context.Context, toolName string, input json.RawMessage) agent.Approval {
	if s.req.Mode == ModePlan {
		if ok, reason := planToolAllowed(toolName, input); !ok {
			return agent.Approval{Behavior: agent.BehaviorDeny, Message: reason}
		}
	}

	if toolName == toolAskUser {
		id := uuid.NewString()
		s.emit(ctx, message.Chunk{
			Type:         message.ChunkQuestion,
			ToolName:     toolName,
			InvocationID: id,
			Questions:    parseQuestions(input),
		})
		d := s.o.deps.Gate.Request(ctx, id, s.req.SessionID)
		if !d.Approved {
			return agent.Approval{Behavior: agent.BehaviorDeny, Message: d.Message}
		}
		s.ctrlMu.Lock()
		s.ctrlAnswered++
		s.ctrlMu.Unlock()

		updated := d.UpdatedInput
		if updated == nil {
			updated, _ = json.Marshal(d)
		}
		return agent.Approval{Behavior: agent.BehaviorAllow, UpdatedInput: updated}
	}

	return agent.Approval{Behavior: agent.BehaviorAllow}
}

// takeCollectedAnswer consumes one boundary-collected answer, if any.
func (s *session) takeCollectedAnswer() bool {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if s.ctrlAnswered == 0 {
		return false
	}
	s.ctrlAnswered--
	return true
}

// mcpServers returns the configured server names minus the known-broken
// ones. Cache failures degrade to an empty set.
func (s *session) mcpServers(workDir string) []string {
	configured, err := s.o.deps.Caches.Config.ServersFor(workDir)
	if err != nil {
		log.Logger().Warn("MCP config unreadable", zap.Error(err))
		return nil
	}
	names := make([]string, 0, len(configured))
	for name := range configured {
		names = append(names, name)
	}
	return s.o.deps.Caches.Status.Filter(workDir, names)
}

// checkMentions warns about skill/agent mentions that don't match any known
// definition. They are still forwarded; the agent may know better.
func (s *session) checkMentions(parsed mention.Result) {
	if s.o.deps.Skills == nil {
		return
	}
	known := make(map[string]bool)
	for _, d := range s.o.deps.Skills.Skills() {
		known[d.Name] = true
	}
	for _, name := range parsed.Skills {
		if !known[name] {
			log.Logger().Warn("Unknown skill mentioned", zap.String("skill", name))
		}
	}
	known = make(map[string]bool)
	for _, d := range s.o.deps.Skills.Agents() {
		known[d.Name] = true
	}
	for _, name := range parsed.Agents {
		if !known[name] {
			log.Logger().Warn("Unknown agent mentioned", zap.String("agent", name))
		}
	}
}

// saveImages writes attached images under the session config dir and returns
// their paths for inline reference in the prompt.
func (s *session) saveImages(configDir string) []string {
	if len(s.req.Images) == 0 || configDir == "" {
		return nil
	}
	dir := filepath.Join(configDir, "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Logger().Warn("Failed to create image dir", zap.Error(err))
		return nil
	}

	var paths []string
	for _, img := range s.req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Base64Data)
		if err != nil {
			log.Logger().Warn("Dropping undecodable image attachment", zap.Error(err))
			continue
		}
		name := img.Filename
		if name == "" {
			name = uuid.NewString() + extForMediaType(img.MediaType)
		}
		path := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0644); err != nil {
			log.Logger().Warn("Failed to save image attachment", zap.Error(err))
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

func extForMediaType(mediaType string) string {
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ".img"
}

// --- Streaming ---

var transformCfg = transform.Config{EmitMessageUUID: true}

// streamRuntime drives the agent subprocess. Abort is checked before
// processing every raw event and every derived chunk.
func (s *session) streamRuntime(ctx context.Context) {
	events, err := s.o.deps.Caches.Runtime().Query(ctx, s.opts)
	if err != nil {
		s.emitError(ctx, agent.ClassifyErr(err), err.Error())
		return
	}

	sawAny := false
	for raw := range events {
		if ctx.Err() != nil {
			s.aborted = true
			return
		}
		sawAny = true
		if s.handleRaw(ctx, raw) {
			return
		}
	}

	if ctx.Err() != nil {
		s.aborted = true
		return
	}
	if !sawAny {
		s.emitError(ctx, message.ErrEmptyResponse, "agent produced no output")
	}
}

// streamFallback drives a direct-API streamer, which already speaks the
// chunk protocol.
func (s *session) streamFallback(ctx context.Context) {
	chunks := s.streamer.Stream(ctx, s.fbReq)

	sawAny := false
	for c := range chunks {
		if ctx.Err() != nil {
			s.aborted = true
			return
		}
		sawAny = true
		if s.handleChunk(ctx, c) {
			return
		}
	}

	if ctx.Err() != nil {
		s.aborted = true
		return
	}
	if !sawAny {
		s.emitError(ctx, message.ErrEmptyResponse, "fallback model produced no output")
	}
}

// handleRaw processes one runtime event. Returns true when the stream should
// stop. Embedded errors are detected here even when they ride on an
// otherwise normal event, and classified before anything downstream sees
// them.
func (s *session) handleRaw(ctx context.Context, raw agent.RawMessage) bool {
	if raw.IsError {
		s.emitClassified(ctx, raw.Err)
		return true
	}

	for _, c := range transform.Transform(raw, transformCfg) {
		if ctx.Err() != nil {
			s.aborted = true
			return true
		}
		if s.handleChunk(ctx, c) {
			return true
		}
	}
	return false
}

// handleChunk accumulates and relays one chunk, with the special cases:
// plan-mode restriction, user-question suspension, exit-plan early
// termination. Returns true when the stream should stop.
func (s *session) handleChunk(ctx context.Context, c message.Chunk) bool {
	switch c.Type {
	case message.ChunkToolInput:
		return s.handleToolInput(ctx, c)

	case message.ChunkToolOutput:
		if c.ToolName == "" {
			c.ToolName = s.toolNames[c.InvocationID]
		}
		s.acc.Apply(c)
		s.emit(ctx, c)
		if s.toolNames[c.InvocationID] == toolExitPlan {
			// The plan is done: deliver the terminal chunk first, then
			// tear down the subprocess even though it might otherwise
			// continue. Cancelling first would race emit's ctx check and
			// drop the finish the UI waits on.
			s.planDone = true
			s.emit(ctx, message.Chunk{Type: message.ChunkFinish})
			s.cancel()
			return true
		}
		return false

	case message.ChunkError:
		s.errored = true
		s.emit(ctx, c)
		return true

	case message.ChunkNeedAuth:
		s.errored = true
		s.emit(ctx, c)
		return true

	case message.ChunkFinish:
		s.emit(ctx, c)
		return true

	default:
		s.acc.Apply(c)
		s.emit(ctx, c)
		return false
	}
}

func (s *session) handleToolInput(ctx context.Context, c message.Chunk) bool {
	s.toolNames[c.InvocationID] = c.ToolName

	if s.req.Mode == ModePlan {
		if ok, reason := planToolAllowed(c.ToolName, c.Input); !ok {
			s.acc.Apply(c)
			s.emit(ctx, c)
			denial, _ := json.Marshal(map[string]string{"error": reason})
			out := message.Chunk{
				Type:         message.ChunkToolOutput,
				ToolName:     c.ToolName,
				InvocationID: c.InvocationID,
				Output:       denial,
			}
			s.acc.Apply(out)
			s.emit(ctx, out)
			return false
		}
	}

	if c.ToolName == toolAskUser {
		if s.takeCollectedAnswer() {
			// Already answered at the permission boundary; the runtime has
			// the decision in its input, so just record and relay.
			s.acc.Apply(c)
			s.emit(ctx, c)
			return false
		}
		return s.askUser(ctx, c)
	}

	c.DiffPreview = editPreview(c)
	s.acc.Apply(c)
	s.emit(ctx, c)
	return false
}

// askUser suspends this session on the approval gate until the UI answers,
// the timeout fires, or the session ends. Only this tool call blocks; other
// sessions keep streaming.
func (s *session) askUser(ctx context.Context, c message.Chunk) bool {
	s.acc.Apply(c)
	s.emit(ctx, c)

	s.emit(ctx, message.Chunk{
		Type:         message.ChunkQuestion,
		ToolName:     c.ToolName,
		InvocationID: c.InvocationID,
		Questions:    parseQuestions(c.Input),
	})

	d := s.o.deps.Gate.Request(ctx, c.InvocationID, s.req.SessionID)

	output, _ := json.Marshal(d)
	out := message.Chunk{
		Type:         message.ChunkToolOutput,
		ToolName:     toolAskUser,
		InvocationID: c.InvocationID,
		Output:       output,
	}
	s.acc.Apply(out)
	s.emit(ctx, out)
	return false
}

// parseQuestions decodes the AskUserQuestion input shape. A malformed input
// still yields an empty question list rather than a dropped suspension.
func parseQuestions(input json.RawMessage) []message.Question {
	var args struct {
		Questions []message.Question `json:"questions"`
	}
	if err := json.Unmarshal(input, &args); err == nil && len(args.Questions) > 0 {
		return args.Questions
	}
	var single message.Question
	if err := json.Unmarshal(input, &single); err == nil && single.Question != "" {
		return []message.Question{single}
	}
	return nil
}

// editPreview renders a unified-diff preview for file-modifying tool inputs
// so the UI can show the pending change.
func editPreview(c message.Chunk) string {
	switch c.ToolName {
	case "Edit":
		var args struct {
			FilePath  string `json:"file_path"`
			OldString string `json:"old_string"`
			NewString string `json:"new_string"`
		}
		if err := json.Unmarshal(c.Input, &args); err != nil || args.FilePath == "" {
			return ""
		}
		return approval.DiffPreview(args.FilePath, args.OldString, args.NewString)

	case "Write":
		var args struct {
			FilePath string `json:"file_path"`
			Content  string `json:"content"`
		}
		if err := json.Unmarshal(c.Input, &args); err != nil || args.FilePath == "" {
			return ""
		}
		return approval.NewFilePreview(args.FilePath, args.Content)
	}
	return ""
}

// emitClassified turns an embedded runtime error into the right terminal
// chunk. Authentication failures get the distinct need-auth signal so the UI
// can present a login affordance instead of a generic toast.
func (s *session) emitClassified(ctx context.Context, errText string) {
	category := agent.ClassifyText(errText)
	if category == message.ErrAuthFailed {
		s.errored = true
		s.emit(ctx, message.Chunk{
			Type:          message.ChunkNeedAuth,
			ErrorCategory: category,
			ErrorText:     errText,
		})
		return
	}
	s.emitError(ctx, category, errText)
}

func (s *session) emitError(ctx context.Context, category message.ErrorCategory, text string) {
	s.errored = true
	s.emit(ctx, message.Chunk{
		Type:          message.ChunkError,
		ErrorCategory: category,
		ErrorText:     text,
	})
}

// emit relays one chunk to the subscriber, giving up when the session is
// aborted rather than blocking forever on a full channel.
func (s *session) emit(ctx context.Context, c message.Chunk) {
	select {
	case s.out <- c:
	case <-ctx.Done():
		s.aborted = true
	}
}

// --- Finalizing ---

// finalize is the single exit path for every stream outcome. Accumulated
// text is flushed; a non-empty message is appended and written back
// atomically together with the updated resume id; the stream marker is
// cleared; the conversation is touched; pending approvals are swept.
func (s *session) finalize(ctx context.Context) {
	s.m.to(StateFinalizing)

	s.o.deps.Gate.CancelAll("Session ended", s.req.SessionID)

	if s.stateLoaded {
		st := s.state
		st.StreamID = ""
		if rid := s.acc.ResumeID(); rid != "" {
			st.ResumeID = rid
		}

		msg, ok := s.acc.Message()
		if ok {
			st.Messages = append(st.Messages, msg)
		}

		if err := s.o.deps.Store.ReplaceSessionState(s.req.SessionID, st); err != nil {
			log.Logger().Error("Failed to persist session state", zap.Error(err))
		}

		if ok {
			if mu := s.acc.MessageUUID(); mu != "" {
				if err := s.o.deps.Store.RecordSnapshot(mu, msg); err != nil {
					log.Logger().Warn("Failed to record rollback snapshot", zap.Error(err))
				}
			}
		}
	}

	if err := s.o.deps.Store.TouchConversation(s.req.ConversationID); err != nil {
		log.Logger().Warn("Failed to touch conversation", zap.Error(err))
	}

	switch {
	case s.planDone:
		s.m.to(StateCompleted)
	case s.errored:
		s.m.to(StateErrored)
	case s.aborted || ctx.Err() != nil:
		s.m.to(StateAborted)
	default:
		s.m.to(StateCompleted)
	}
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	list := make([]string, 0, len(env))
	for k, v := range env {
		list = append(list, k+"="+v)
	}
	return list
}
