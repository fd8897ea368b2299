package uistream

import (
	"sync"

	"github.com/calegria/deskagent/internal/message"
)

// ChannelSink is the in-process Sink: chunks are republished onto a buffered
// channel the UI layer reads from.
type ChannelSink struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	ch     chan message.Chunk
	done   chan struct{}
	closed bool
}

// NewChannelSink creates a sink with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{
		ch:   make(chan message.Chunk, buffer),
		done: make(chan struct{}),
	}
}

// C is the consumer side of the sink.
func (s *ChannelSink) C() <-chan message.Chunk {
	return s.ch
}

// Write enqueues a chunk. The send happens outside the lock so a full buffer
// with a gone consumer cannot wedge Close behind the mutex; a close during
// the blocked send unblocks it with ErrClosed.
func (s *ChannelSink) Write(c message.Chunk) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	select {
	case s.ch <- c:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Close ends the stream. In-flight writers are released via the done signal
// and waited out before the consumer channel closes, so no send ever races
// the channel close. Closing twice returns ErrClosed.
func (s *ChannelSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.ch)
	return nil
}

var _ Sink = (*ChannelSink)(nil)
