// Package transform is the single translation boundary between the agent
// runtime's event vocabulary and the system's own chunk protocol. Transform
// is pure: no I/O, no state across calls beyond the caller-provided Config.
// A new runtime event kind is handled by extending this package, never by
// special-casing in the orchestrator.
package transform

import (
	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/message"
)

// Config carries the per-session flags that influence translation.
type Config struct {
	// Offline marks chunks produced by the local fallback path.
	Offline bool
	// EmitMessageUUID forwards the runtime's internal message id so the
	// rollback feature can snapshot against it.
	EmitMessageUUID bool
	// EmitAssistantText emits text blocks from complete assistant messages.
	// Streaming runtimes deliver the same text as deltas first, so this is
	// off for them and on for non-streaming paths like the offline fallback.
	EmitAssistantText bool
}

// Transform turns one raw runtime event into zero or more chunks. Unknown
// event kinds yield nothing; embedded errors are left for the orchestrator,
// which inspects the raw event before transforming it.
func Transform(raw agent.RawMessage, cfg Config) []message.Chunk {
	switch raw.Kind {
	case agent.KindInit:
		meta := &message.Metadata{ResumeID: raw.SessionID}
		return []message.Chunk{{Type: message.ChunkMetadata, Meta: meta}}

	case agent.KindCompaction:
		return []message.Chunk{{Type: message.ChunkSystem, Marker: message.MarkerCompactionStart}}

	case agent.KindTextDelta:
		return []message.Chunk{{Type: message.ChunkTextDelta, Text: raw.Text}}

	case agent.KindTextEnd:
		return []message.Chunk{{Type: message.ChunkTextEnd}}

	case agent.KindAssistant:
		return transformAssistant(raw, cfg)

	case agent.KindToolResult:
		return []message.Chunk{{
			Type:         message.ChunkToolOutput,
			InvocationID: raw.InvocationID,
			Output:       raw.Output,
		}}

	case agent.KindResult:
		return transformResult(raw)
	}

	return nil
}

func transformAssistant(raw agent.RawMessage, cfg Config) []message.Chunk {
	var chunks []message.Chunk

	if cfg.EmitMessageUUID && raw.MessageUUID != "" {
		chunks = append(chunks, message.Chunk{
			Type: message.ChunkMetadata,
			Meta: &message.Metadata{MessageUUID: raw.MessageUUID},
		})
	}

	for _, b := range raw.Blocks {
		switch b.Type {
		case agent.BlockText:
			if cfg.EmitAssistantText && b.Text != "" {
				chunks = append(chunks,
					message.Chunk{Type: message.ChunkTextDelta, Text: b.Text},
					message.Chunk{Type: message.ChunkTextEnd},
				)
			}
		case agent.BlockToolUse:
			chunks = append(chunks, message.Chunk{
				Type:         message.ChunkToolInput,
				ToolName:     b.Name,
				InvocationID: b.ID,
				Input:        b.Input,
			})
		}
	}

	return chunks
}

func transformResult(raw agent.RawMessage) []message.Chunk {
	if raw.IsError {
		return []message.Chunk{{
			Type:          message.ChunkError,
			ErrorCategory: agent.ClassifyText(raw.Err),
			ErrorText:     raw.Err,
		}}
	}

	meta := &message.Metadata{
		ResumeID: raw.SessionID,
		Usage:    raw.Usage,
		CostUSD:  raw.CostUSD,
	}
	return []message.Chunk{
		{Type: message.ChunkMetadata, Meta: meta},
		{Type: message.ChunkFinish},
	}
}
