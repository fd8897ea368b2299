package uistream

import "github.com/calegria/deskagent/internal/message"

// ActionKind is the one-click remedial action attached to an error toast.
type ActionKind string

const (
	// ActionCopy copies the payload to the clipboard.
	ActionCopy ActionKind = "copy"
	// ActionLogin opens the re-authentication flow.
	ActionLogin ActionKind = "login"
	// ActionRetry re-submits the last prompt.
	ActionRetry ActionKind = "retry"
)

// Action is an optional remedial affordance on an error presentation.
type Action struct {
	Kind    ActionKind
	Label   string
	Payload string
}

// Presentation is the user-facing rendering of an error chunk.
type Presentation struct {
	Category    message.ErrorCategory
	Title       string
	Description string
	Action      *Action
	// Raw carries the original error text for diagnostics.
	Raw string
}

// catalog maps each error category to its toast content. Descriptions speak
// to the user, not the developer.
var catalog = map[message.ErrorCategory]Presentation{
	message.ErrWorkspacePath: {
		Title:       "Workspace not found",
		Description: "The working directory no longer exists and no project fallback was available.",
	},
	message.ErrAuthFailed: {
		Title:       "Authentication required",
		Description: "Your agent session has expired. Log in again to continue.",
		Action:      &Action{Kind: ActionLogin, Label: "Log in"},
	},
	message.ErrInvalidAPIKey: {
		Title:       "Invalid credential",
		Description: "The configured API key was rejected. Check your credentials.",
	},
	message.ErrRateLimited: {
		Title:       "Rate limited",
		Description: "Too many requests right now. Wait a moment and try again.",
		Action:      &Action{Kind: ActionRetry, Label: "Retry"},
	},
	message.ErrOverloaded: {
		Title:       "Service overloaded",
		Description: "The model service is under heavy load. Try again shortly.",
		Action:      &Action{Kind: ActionRetry, Label: "Retry"},
	},
	message.ErrProcessCrash: {
		Title:       "Agent crashed",
		Description: "The agent process exited unexpectedly. Partial output was saved.",
	},
	message.ErrExecMissing: {
		Title:       "Agent not installed",
		Description: "The agent CLI could not be found. Install it and make sure it is on your PATH.",
		Action:      &Action{Kind: ActionCopy, Label: "Copy install command", Payload: "npm install -g @anthropic-ai/claude-code"},
	},
	message.ErrNetwork: {
		Title:       "Network error",
		Description: "Could not reach the model service. Check your connection.",
		Action:      &Action{Kind: ActionRetry, Label: "Retry"},
	},
	message.ErrTimeout: {
		Title:       "Timed out",
		Description: "The request took too long and was cancelled.",
		Action:      &Action{Kind: ActionRetry, Label: "Retry"},
	},
	message.ErrEmptyResponse: {
		Title:       "No response",
		Description: "The agent finished without producing any output.",
	},
}

// Present maps an error chunk to its toast presentation. Unlisted categories
// fall back to a generic entry that still surfaces the raw error text with a
// copy action, never a blank message.
func Present(c message.Chunk) Presentation {
	p, ok := catalog[c.ErrorCategory]
	if !ok {
		p = Presentation{
			Title:       "Something went wrong",
			Description: c.ErrorText,
			Action:      &Action{Kind: ActionCopy, Label: "Copy error details", Payload: c.ErrorText},
		}
	}
	p.Category = c.ErrorCategory
	p.Raw = c.ErrorText
	if p.Action != nil && p.Action.Kind == ActionCopy && p.Action.Payload == "" {
		action := *p.Action
		action.Payload = c.ErrorText
		p.Action = &action
	}
	return p
}
