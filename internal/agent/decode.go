package agent

import (
	"encoding/json"

	"github.com/calegria/deskagent/internal/message"
)

// wireMessage mirrors the runtime's NDJSON event envelope. Only the fields
// the decoder needs are declared; everything else is ignored.
type wireMessage struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	Error     string `json:"error,omitempty"`
	Result    string `json:"result,omitempty"`

	Message *wirePayload `json:"message,omitempty"`
	Event   *wireEvent   `json:"event,omitempty"`

	RequestID string       `json:"request_id,omitempty"`
	Request   *wireRequest `json:"request,omitempty"`

	Usage        *wireUsage `json:"usage,omitempty"`
	TotalCostUSD float64    `json:"total_cost_usd,omitempty"`
}

type wirePayload struct {
	ID      string      `json:"id,omitempty"`
	Content []wireBlock `json:"content,omitempty"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type wireEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"delta,omitempty"`
}

type wireRequest struct {
	Subtype  string          `json:"subtype"`
	ToolName string          `json:"tool_name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Decode translates one NDJSON line into a RawMessage. Unrecognized event
// types decode to KindUnknown rather than an error: the runtime's vocabulary
// grows over time and unknown events must never break the stream.
func Decode(line []byte) RawMessage {
	var w wireMessage
	if err := json.Unmarshal(line, &w); err != nil {
		return RawMessage{Kind: KindUnknown}
	}

	raw := RawMessage{
		SessionID: w.SessionID,
		Model:     w.Model,
		IsError:   w.IsError,
		Err:       w.Error,
	}

	switch w.Type {
	case "system":
		switch w.Subtype {
		case "init":
			raw.Kind = KindInit
		case "compact_boundary":
			raw.Kind = KindCompaction
		default:
			raw.Kind = KindUnknown
		}

	case "stream_event":
		raw.Kind = decodeStreamEvent(w.Event, &raw)

	case "assistant":
		raw.Kind = KindAssistant
		if w.Message != nil {
			raw.MessageUUID = w.Message.ID
			for _, b := range w.Message.Content {
				switch b.Type {
				case "text":
					raw.Blocks = append(raw.Blocks, Block{Type: BlockText, Text: b.Text})
				case "tool_use":
					raw.Blocks = append(raw.Blocks, Block{
						Type:  BlockToolUse,
						ID:    b.ID,
						Name:  b.Name,
						Input: b.Input,
					})
				}
			}
		}

	case "user":
		// The runtime reports tool outputs as user-role messages holding
		// tool_result blocks.
		raw.Kind = KindUnknown
		if w.Message != nil {
			for _, b := range w.Message.Content {
				if b.Type == "tool_result" {
					raw.Kind = KindToolResult
					raw.InvocationID = b.ToolUseID
					raw.Output = b.Content
					raw.IsError = raw.IsError || b.IsError
					break
				}
			}
		}

	case "control_request":
		raw.Kind = KindUnknown
		if w.Request != nil && w.Request.Subtype == "can_use_tool" {
			raw.Kind = KindControlRequest
			raw.RequestID = w.RequestID
			raw.ToolName = w.Request.ToolName
			raw.Input = w.Request.Input
		}

	case "result":
		raw.Kind = KindResult
		raw.Text = w.Result
		raw.CostUSD = w.TotalCostUSD
		if w.Usage != nil {
			raw.Usage = &message.Usage{
				InputTokens:  w.Usage.InputTokens,
				OutputTokens: w.Usage.OutputTokens,
			}
		}
		if w.Subtype != "" && w.Subtype != "success" {
			raw.IsError = true
			if raw.Err == "" {
				raw.Err = w.Subtype
				if w.Result != "" {
					raw.Err = w.Result
				}
			}
		}

	default:
		raw.Kind = KindUnknown
	}

	// An error field on an otherwise normal message still counts.
	if raw.Err != "" {
		raw.IsError = true
	}

	return raw
}

func decodeStreamEvent(e *wireEvent, raw *RawMessage) Kind {
	if e == nil {
		return KindUnknown
	}
	switch e.Type {
	case "content_block_delta":
		if e.Delta != nil && e.Delta.Type == "text_delta" {
			raw.Text = e.Delta.Text
			return KindTextDelta
		}
		return KindUnknown
	case "content_block_stop":
		return KindTextEnd
	default:
		return KindUnknown
	}
}
