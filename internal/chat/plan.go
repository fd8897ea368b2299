package chat

import (
	"encoding/json"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Tool names with special orchestrator handling.
const (
	toolAskUser  = "AskUserQuestion"
	toolExitPlan = "ExitPlanMode"
)

// planDeniedTools are refused outright in plan mode, before any execution.
var planDeniedTools = map[string]bool{
	"Bash":         true,
	"KillShell":    true,
	"NotebookEdit": true,
}

// planEditTools modify files and are restricted to markdown in plan mode.
var planEditTools = map[string]bool{
	"Edit":  true,
	"Write": true,
}

// planMarkdownPattern is the only file shape a plan is allowed to touch.
const planMarkdownPattern = "**/*.md"

// planToolAllowed decides whether a tool invocation is permitted in plan
// mode. Edits are allowed only on markdown files; a defined set of tools is
// denied regardless of input.
func planToolAllowed(toolName string, input json.RawMessage) (bool, string) {
	if planDeniedTools[toolName] {
		return false, fmt.Sprintf("%s is not available in plan mode", toolName)
	}
	if !planEditTools[toolName] {
		return true, ""
	}

	var args struct {
		FilePath string `json:"file_path"`
	}
	if err := json.Unmarshal(input, &args); err != nil || args.FilePath == "" {
		return false, "plan mode only permits edits to markdown files"
	}

	ok, err := doublestar.Match(planMarkdownPattern, args.FilePath)
	if err != nil || !ok {
		return false, fmt.Sprintf("plan mode only permits edits to markdown files, not %s", args.FilePath)
	}
	return true, ""
}
