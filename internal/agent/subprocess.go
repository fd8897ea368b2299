package agent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/log"
)

// scanBufSize bounds one NDJSON line; tool outputs can be large.
const scanBufSize = 10 * 1024 * 1024

// SubprocessRuntime runs the agent CLI as a child process and decodes its
// stream-json output. Cancellation goes through the context: exec kills the
// process group and the read loop drains and exits.
type SubprocessRuntime struct {
	// Executable is the agent CLI binary. Resolved via PATH when relative.
	Executable string
}

// NewSubprocessRuntime creates a runtime for the given executable path.
func NewSubprocessRuntime(executable string) *SubprocessRuntime {
	return &SubprocessRuntime{Executable: executable}
}

// Query starts the subprocess and returns its decoded event stream. A start
// failure (missing binary, bad working directory) is returned synchronously;
// failures after start surface as a terminal KindResult event with IsError.
func (r *SubprocessRuntime) Query(ctx context.Context, opts Options) (<-chan RawMessage, error) {
	args := []string{
		"--print",
		"--output-format", "stream-json",
		"--include-partial-messages",
		"--verbose",
	}

	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", opts.PermissionMode)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if opts.ResumeID != "" {
		args = append(args, "--resume", opts.ResumeID)
	} else {
		args = append(args, "--continue")
	}
	if opts.MaxThinkingTokens > 0 {
		args = append(args, "--max-thinking-tokens", strconv.Itoa(opts.MaxThinkingTokens))
	}
	for _, name := range opts.MCPServers {
		args = append(args, "--allowed-mcp-server", name)
	}
	args = append(args, opts.Prompt)

	cmd := exec.CommandContext(ctx, r.Executable, args...)
	cmd.Dir = opts.WorkingDir
	cmd.Env = append(os.Environ(), opts.Env...)
	if opts.ConfigDir != "" {
		cmd.Env = append(cmd.Env, "AGENT_CONFIG_DIR="+opts.ConfigDir)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent process: %w", err)
	}

	log.Logger().Debug("Agent process started",
		zap.String("executable", r.Executable),
		zap.String("cwd", opts.WorkingDir),
		zap.String("mode", opts.PermissionMode),
	)

	ch := make(chan RawMessage)
	go func() {
		defer close(ch)

		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), scanBufSize)

		sawResult := false
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			raw := Decode(line)
			if raw.Kind == KindControlRequest {
				// Permission requests are answered on stdin, in order,
				// while the runtime blocks the tool. They never reach
				// the event channel.
				answerControlRequest(ctx, stdin, raw, opts.ApproveTool)
				continue
			}
			if raw.Kind == KindResult {
				sawResult = true
			}
			select {
			case ch <- raw:
			case <-ctx.Done():
				_ = cmd.Wait()
				return
			}
		}

		waitErr := cmd.Wait()
		if ctx.Err() != nil {
			return
		}
		if waitErr != nil && !sawResult {
			// Abnormal exit with no terminal event: synthesize one so the
			// orchestrator still reaches finalizing with a classified error.
			ch <- RawMessage{
				Kind:    KindResult,
				IsError: true,
				Err:     waitErr.Error(),
			}
			log.Logger().Debug("Agent process exited abnormally", zap.Error(waitErr))
		}
	}()

	return ch, nil
}

// controlResponse is the stdin wire shape answering a can_use_tool request.
type controlResponse struct {
	Type     string              `json:"type"`
	Response controlResponseBody `json:"response"`
}

type controlResponseBody struct {
	Subtype   string          `json:"subtype"`
	RequestID string          `json:"request_id"`
	Response  controlDecision `json:"response"`
}

type controlDecision struct {
	Behavior     string          `json:"behavior"`
	Message      string          `json:"message,omitempty"`
	UpdatedInput json.RawMessage `json:"updatedInput,omitempty"`
}

// answerControlRequest resolves one permission request through the approval
// callback and writes the decision back to the runtime. A nil callback
// allows, matching a runtime launched without host-side gating.
func answerControlRequest(ctx context.Context, stdin io.Writer, raw RawMessage, approve func(context.Context, string, json.RawMessage) Approval) {
	a := Approval{Behavior: BehaviorAllow}
	if approve != nil {
		a = approve(ctx, raw.ToolName, raw.Input)
	}

	resp := controlResponse{
		Type: "control_response",
		Response: controlResponseBody{
			Subtype:   "success",
			RequestID: raw.RequestID,
			Response: controlDecision{
				Behavior:     a.Behavior,
				Message:      a.Message,
				UpdatedInput: a.UpdatedInput,
			},
		},
	}
	if err := json.NewEncoder(stdin).Encode(resp); err != nil {
		log.Logger().Warn("Failed to answer control request",
			zap.String("tool", raw.ToolName), zap.Error(err))
	}
}

var _ Runtime = (*SubprocessRuntime)(nil)
