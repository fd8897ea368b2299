package fallback

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/config"
	"github.com/calegria/deskagent/internal/log"
	"github.com/calegria/deskagent/internal/message"
)

const anthropicMaxTokens = 8192

// AnthropicStreamer talks directly to an Anthropic-compatible API. This is
// the customModel path: the user supplies model, token and optionally a base
// URL, and the agent subprocess is bypassed entirely.
type AnthropicStreamer struct {
	client anthropic.Client
	model  string
}

// NewAnthropicStreamer creates a streamer for the given custom model config.
func NewAnthropicStreamer(cm config.CustomModel) *AnthropicStreamer {
	opts := []option.RequestOption{option.WithAPIKey(cm.Token)}
	if cm.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cm.BaseURL))
	}
	return &AnthropicStreamer{
		client: anthropic.NewClient(opts...),
		model:  cm.Model,
	}
}

// Stream sends one messages request and adapts the SDK event stream to the
// chunk protocol. The stream always ends with a finish or error chunk.
func (s *AnthropicStreamer) Stream(ctx context.Context, req Request) <-chan message.Chunk {
	ch := make(chan message.Chunk)

	go func() {
		defer close(ch)

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(s.model),
			MaxTokens: anthropicMaxTokens,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(req))),
			},
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}

		log.Logger().Debug("Custom model request", zap.String("model", s.model))
		stream := s.client.Messages.NewStreaming(ctx, params)

		var usage message.Usage
		emitted := false

		for stream.Next() {
			event := stream.Current()
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					emitted = true
					ch <- message.Chunk{Type: message.ChunkTextDelta, Text: delta.Text}
				}
			case anthropic.ContentBlockStopEvent:
				if emitted {
					ch <- message.Chunk{Type: message.ChunkTextEnd}
					emitted = false
				}
			case anthropic.MessageStartEvent:
				usage.InputTokens = int(ev.Message.Usage.InputTokens)
			case anthropic.MessageDeltaEvent:
				usage.OutputTokens = int(ev.Usage.OutputTokens)
			}
		}

		if err := stream.Err(); err != nil {
			log.Logger().Warn("Custom model stream failed", zap.Error(err))
			ch <- message.Chunk{
				Type:          message.ChunkError,
				ErrorCategory: agent.ClassifyText(err.Error()),
				ErrorText:     err.Error(),
			}
			return
		}

		if emitted {
			ch <- message.Chunk{Type: message.ChunkTextEnd}
		}
		ch <- message.Chunk{
			Type: message.ChunkMetadata,
			Meta: &message.Metadata{Usage: &usage},
		}
		ch <- message.Chunk{Type: message.ChunkFinish}
	}()

	return ch
}

var _ Streamer = (*AnthropicStreamer)(nil)
