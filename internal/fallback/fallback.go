// Package fallback provides the direct-API paths used when the agent
// subprocess is not the right vehicle: a local OpenAI-compatible runner for
// offline operation, and a direct Anthropic-compatible endpoint when the user
// configures a custom model. Both speak the same chunk protocol as the
// subprocess pipeline, so the orchestrator does not care which path produced
// a stream.
package fallback

import (
	"context"
	"net/http"
	"time"

	"github.com/calegria/deskagent/internal/message"
)

// Request is a single fallback completion turn.
type Request struct {
	// Prompt is the new user turn, mentions already expanded.
	Prompt string
	// History is the prior conversation, digested into the prompt because
	// fallback endpoints have no resume id to hand back.
	History []message.Message
	// TruncateChars caps each history entry in the digest. Zero uses the
	// configured default.
	TruncateChars int
	// System is an optional system prompt.
	System string
}

// Streamer produces a chunk stream for one request. The returned channel is
// closed when the stream ends, after a finish or error chunk.
type Streamer interface {
	Stream(ctx context.Context, req Request) <-chan message.Chunk
}

// Probe checks whether the upstream API is reachable. A failed probe routes
// the turn to the local offline model instead.
type Probe struct {
	// URL is probed with a HEAD request; any response counts as online.
	URL string
	// Client defaults to one with a short timeout.
	Client *http.Client
}

const probeTimeout = 3 * time.Second

// DefaultProbeURL is the upstream whose reachability decides online/offline.
const DefaultProbeURL = "https://api.anthropic.com"

// NewProbe creates a probe against the default upstream.
func NewProbe() *Probe {
	return &Probe{
		URL:    DefaultProbeURL,
		Client: &http.Client{Timeout: probeTimeout},
	}
}

// Online reports whether the upstream answered at all. Status codes don't
// matter; only transport-level failure means offline.
func (p *Probe) Online(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
