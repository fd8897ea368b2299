// Package uistream bridges an orchestrator chunk subscription into a
// UI-consumable stream. It tracks explicit stream state so an errored stream
// is never closed normally, republishes chunks into a sink, and mirrors
// select chunk types into shared UI state as a side effect.
package uistream

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/log"
	"github.com/calegria/deskagent/internal/message"
)

// StreamState is the adapter's lifecycle. Closed and errored are tracked as
// distinct terminals: closing an errored stream is illegal, and writes to a
// closed stream are dropped rather than raised — except error chunks, which
// are always attempted so the UI state machine can observe and reset.
type StreamState int

const (
	StreamOpen StreamState = iota
	StreamClosed
	StreamErrored
)

func (s StreamState) String() string {
	switch s {
	case StreamOpen:
		return "open"
	case StreamClosed:
		return "closed"
	case StreamErrored:
		return "errored"
	}
	return "unknown"
}

// ErrClosed is returned by sinks written after close.
var ErrClosed = errors.New("stream sink closed")

// Sink is the downstream UI stream the adapter republishes into.
type Sink interface {
	Write(c message.Chunk) error
	// Close ends the stream normally. Closing twice is tolerated.
	Close() error
}

// Adapter consumes one chunk subscription. Construct per stream.
type Adapter struct {
	sink   Sink
	ui     *UIState
	cancel func() // orchestrator-side cancel for this session

	// OnError, when set, receives the presentation entry for every error
	// or need-auth chunk (toast display).
	OnError func(Presentation)

	mu    sync.Mutex
	state StreamState
	quit  chan struct{}
	done  bool
}

// New creates an adapter writing into sink, mirroring into ui, with cancel
// wired to the orchestrator's session cancel.
func New(sink Sink, ui *UIState, cancel func()) *Adapter {
	return &Adapter{
		sink:   sink,
		ui:     ui,
		cancel: cancel,
		quit:   make(chan struct{}),
	}
}

// State returns the current stream state.
func (a *Adapter) State() StreamState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Run consumes the subscription until it completes or Abort is called. On a
// normal end the sink is closed; an errored stream is left unclosed by
// design. Run returns the final state.
func (a *Adapter) Run(ch <-chan message.Chunk) StreamState {
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return a.finish()
			}
			a.handle(c)
		case <-a.quit:
			return a.State()
		}
	}
}

// Abort unsubscribes from the upstream channel, issues an explicit cancel to
// the orchestrator, and closes the local stream defensively.
func (a *Adapter) Abort() {
	a.mu.Lock()
	if a.done {
		a.mu.Unlock()
		return
	}
	a.done = true
	close(a.quit)
	if a.state == StreamOpen {
		a.state = StreamClosed
	}
	a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
	}
	// Already-closed is tolerated here.
	if err := a.sink.Close(); err != nil && !errors.Is(err, ErrClosed) {
		log.Logger().Debug("Sink close on abort", zap.Error(err))
	}
	a.ui.Clear()
}

// handle republishes one chunk and mirrors its side effects into UI state.
func (a *Adapter) handle(c message.Chunk) {
	switch c.Type {
	case message.ChunkQuestion:
		a.ui.SetQuestion(c.InvocationID, c.Questions, c.DiffPreview)

	case message.ChunkToolOutput:
		a.ui.ClearQuestion(c.InvocationID)

	case message.ChunkSystem:
		switch c.Marker {
		case message.MarkerCompactionStart:
			a.ui.SetCompacting(true)
		case message.MarkerCompactionDone:
			a.ui.SetCompacting(false)
		}

	case message.ChunkMetadata:
		a.ui.MergeMeta(c.Meta)

	case message.ChunkError, message.ChunkNeedAuth:
		a.mu.Lock()
		a.state = StreamErrored
		a.mu.Unlock()
		if a.OnError != nil {
			a.OnError(Present(c))
		}
		// Error chunks are always attempted, even after closure, so the
		// UI's own state machine can observe them and reset.
		if err := a.sink.Write(c); err != nil {
			log.Logger().Debug("Error chunk write after close", zap.Error(err))
		}
		return
	}

	a.mu.Lock()
	closed := a.state != StreamOpen
	a.mu.Unlock()
	if closed {
		// Silently drop; a closed stream must not throw on late writes.
		return
	}

	if err := a.sink.Write(c); err != nil {
		a.mu.Lock()
		a.state = StreamErrored
		a.mu.Unlock()
		log.Logger().Warn("Sink write failed", zap.Error(err))
	}
}

// finish runs when the upstream channel completes. Errored streams are never
// closed normally.
func (a *Adapter) finish() StreamState {
	a.mu.Lock()
	if a.state == StreamErrored {
		a.mu.Unlock()
		a.ui.Clear()
		return StreamErrored
	}
	a.state = StreamClosed
	a.mu.Unlock()

	if err := a.sink.Close(); err != nil && !errors.Is(err, ErrClosed) {
		log.Logger().Warn("Sink close failed", zap.Error(err))
	}
	a.ui.Clear()
	return StreamClosed
}
