package fallback

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calegria/deskagent/internal/message"
)

func TestOpenAIStreamerAdaptsStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"hel"}}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":"lo"}}]}`+"\n\n")
		io.WriteString(w, `data: {"id":"c1","object":"chat.completion.chunk","choices":[],"usage":{"prompt_tokens":3,"completion_tokens":5}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	s := NewOpenAIStreamer(srv.URL, "local-model")

	var chunks []message.Chunk
	for c := range s.Stream(t.Context(), Request{Prompt: "hi"}) {
		chunks = append(chunks, c)
	}

	var text string
	var meta *message.Metadata
	finishes := 0
	for _, c := range chunks {
		switch c.Type {
		case message.ChunkTextDelta:
			text += c.Text
		case message.ChunkMetadata:
			meta = c.Meta
		case message.ChunkFinish:
			finishes++
		}
	}

	if text != "hello" {
		t.Errorf("text = %q, want %q", text, "hello")
	}
	if meta == nil || meta.Usage == nil {
		t.Fatalf("metadata chunk must carry usage, got %+v", meta)
	}
	if meta.Usage.InputTokens != 3 || meta.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v, want 3 in / 5 out", meta.Usage)
	}
	if finishes != 1 {
		t.Errorf("finish chunks = %d, want 1", finishes)
	}
}

func TestOpenAIStreamerTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	s := NewOpenAIStreamer(srv.URL, "local-model")

	var last message.Chunk
	for c := range s.Stream(t.Context(), Request{Prompt: "hi"}) {
		last = c
	}

	if last.Type != message.ChunkError {
		t.Fatalf("terminal chunk = %v, want error", last.Type)
	}
	if last.ErrorText == "" {
		t.Error("error chunk must carry the failure text")
	}
}
