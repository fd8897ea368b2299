// Package config provides multi-level settings management for deskagent.
// Settings are loaded from multiple sources with the following priority
// (lowest to highest):
//  1. ~/.deskagent/settings.json (user level)
//  2. .deskagent/settings.json (project level)
//  3. .deskagent/settings.local.json (local level, not checked in)
//
// Later sources override earlier ones.
package config

// Defaults applied when no settings file sets a value.
const (
	DefaultModel              = "default"
	DefaultOfflineModel       = "qwen2.5-coder"
	DefaultOfflineBaseURL     = "http://localhost:11434/v1"
	DefaultHistoryTruncate    = 4000
	DefaultMaxThinkingTokens  = 0
	DefaultAgentExecutable    = "claude"
	DefaultApprovalTimeoutSec = 60
)

// Settings represents the complete deskagent configuration.
type Settings struct {
	// Model is the default model alias sent to the agent subprocess.
	Model string `json:"model,omitempty"`

	// OfflineModel is the local model used when the network probe fails.
	OfflineModel string `json:"offlineModel,omitempty"`

	// OfflineBaseURL is the OpenAI-compatible endpoint of the local runner.
	OfflineBaseURL string `json:"offlineBaseUrl,omitempty"`

	// HistoryTruncateChars caps each prior message in the history digest
	// that is inlined into fallback prompts. Zero means the default.
	HistoryTruncateChars int `json:"historyTruncateChars,omitempty"`

	// MaxThinkingTokens forwards a thinking-token budget to the agent.
	// Zero omits the flag.
	MaxThinkingTokens int `json:"maxThinkingTokens,omitempty"`

	// AgentExecutable is the agent CLI binary name or path.
	AgentExecutable string `json:"agentExecutable,omitempty"`

	// ApprovalTimeoutSec bounds how long a tool approval request waits.
	ApprovalTimeoutSec int `json:"approvalTimeoutSec,omitempty"`

	// CustomModel, when set, bypasses the agent subprocess entirely and
	// talks to an Anthropic-compatible API directly.
	CustomModel *CustomModel `json:"customModel,omitempty"`

	// Env defines environment variables passed to the agent subprocess.
	Env map[string]string `json:"env,omitempty"`
}

// CustomModel routes requests straight to an Anthropic-compatible endpoint.
type CustomModel struct {
	Model   string `json:"model"`
	Token   string `json:"token"`
	BaseURL string `json:"baseUrl,omitempty"`
}

// NewSettings creates a Settings instance with all defaults applied.
func NewSettings() *Settings {
	return &Settings{
		Model:                DefaultModel,
		OfflineModel:         DefaultOfflineModel,
		OfflineBaseURL:       DefaultOfflineBaseURL,
		HistoryTruncateChars: DefaultHistoryTruncate,
		AgentExecutable:      DefaultAgentExecutable,
		ApprovalTimeoutSec:   DefaultApprovalTimeoutSec,
		Env:                  make(map[string]string),
	}
}

// Merge merges two Settings objects. Values from overlay override values in
// base; maps are merged key-wise with overlay winning.
func Merge(base, overlay *Settings) *Settings {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	result := *base

	if overlay.Model != "" {
		result.Model = overlay.Model
	}
	if overlay.OfflineModel != "" {
		result.OfflineModel = overlay.OfflineModel
	}
	if overlay.OfflineBaseURL != "" {
		result.OfflineBaseURL = overlay.OfflineBaseURL
	}
	if overlay.HistoryTruncateChars != 0 {
		result.HistoryTruncateChars = overlay.HistoryTruncateChars
	}
	if overlay.MaxThinkingTokens != 0 {
		result.MaxThinkingTokens = overlay.MaxThinkingTokens
	}
	if overlay.AgentExecutable != "" {
		result.AgentExecutable = overlay.AgentExecutable
	}
	if overlay.ApprovalTimeoutSec != 0 {
		result.ApprovalTimeoutSec = overlay.ApprovalTimeoutSec
	}
	if overlay.CustomModel != nil {
		cm := *overlay.CustomModel
		result.CustomModel = &cm
	}

	result.Env = mergeStringMaps(base.Env, overlay.Env)

	return &result
}

func mergeStringMaps(base, overlay map[string]string) map[string]string {
	result := make(map[string]string)
	for k, v := range base {
		result[k] = v
	}
	for k, v := range overlay {
		result[k] = v
	}
	return result
}
