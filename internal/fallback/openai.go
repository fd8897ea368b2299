package fallback

import (
	"context"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/log"
	"github.com/calegria/deskagent/internal/message"
)

// OpenAIStreamer talks to an OpenAI-compatible endpoint, typically a local
// runner like Ollama or LM Studio serving the offline model.
type OpenAIStreamer struct {
	client openai.Client
	model  string
}

// NewOpenAIStreamer creates a streamer against baseURL. Local runners ignore
// the API key but the SDK requires one.
func NewOpenAIStreamer(baseURL, model string) *OpenAIStreamer {
	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey("local"),
	)
	return &OpenAIStreamer{client: client, model: model}
}

// Stream sends one chat-completions request and adapts the SDK stream to the
// chunk protocol. The stream always ends with a finish or error chunk.
func (s *OpenAIStreamer) Stream(ctx context.Context, req Request) <-chan message.Chunk {
	ch := make(chan message.Chunk)

	go func() {
		defer close(ch)

		messages := []openai.ChatCompletionMessageParamUnion{}
		if req.System != "" {
			messages = append(messages, openai.SystemMessage(req.System))
		}
		messages = append(messages, openai.UserMessage(BuildPrompt(req)))

		params := openai.ChatCompletionNewParams{
			Model:    s.model,
			Messages: messages,
		}

		log.Logger().Debug("Offline fallback request", zap.String("model", s.model))
		stream := s.client.Chat.Completions.NewStreaming(ctx, params)

		var usage message.Usage
		emitted := false

		for stream.Next() {
			chunk := stream.Current()
			for _, choice := range chunk.Choices {
				if choice.Delta.Content != "" {
					emitted = true
					ch <- message.Chunk{Type: message.ChunkTextDelta, Text: choice.Delta.Content}
				}
			}
			if chunk.Usage.PromptTokens > 0 {
				usage.InputTokens = int(chunk.Usage.PromptTokens)
			}
			if chunk.Usage.CompletionTokens > 0 {
				usage.OutputTokens = int(chunk.Usage.CompletionTokens)
			}
		}

		if err := stream.Err(); err != nil {
			log.Logger().Warn("Offline fallback stream failed", zap.Error(err))
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

var _ Streamer = (*OpenAIStreamer)(nil)
