// Package approval implements the synchronous human-in-the-loop gate for
// sensitive tool invocations. A streaming session blocks one tool call on
// Request until the UI resolves it, the timeout fires, or the owning session
// ends.
package approval

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultTimeout is how long a pending approval waits before auto-denying.
const DefaultTimeout = 60 * time.Second

// TimeoutMessage is the decision message used for timed-out approvals.
const TimeoutMessage = "Timed out"

// Decision is the outcome of an approval request.
type Decision struct {
	Approved     bool            `json:"approved"`
	Message      string          `json:"message,omitempty"`
	UpdatedInput json.RawMessage `json:"updatedInput,omitempty"`
	// TimedOut distinguishes an automatic timeout denial from an explicit
	// one, so observers can clear pending-approval UI state precisely.
	TimedOut bool `json:"timedOut,omitempty"`
}

type pending struct {
	sessionID string
	ch        chan Decision
	// claimed marks the single winner between a resolver and the
	// requester's timeout/cancel branch. Guarded by the gate mutex.
	claimed bool
}

// Gate tracks pending approvals keyed by tool-invocation id. Construct one
// per process and inject it; each test constructs a fresh instance.
type Gate struct {
	mu      sync.Mutex
	pending map[string]*pending

	// Timeout overrides DefaultTimeout when positive. Tests set it low
	// instead of faking the clock.
	Timeout time.Duration

	// OnTimeout, when set, is notified after an approval auto-denies.
	OnTimeout func(invocationID string)
}

// NewGate creates an empty gate with the default timeout.
func NewGate() *Gate {
	return &Gate{pending: make(map[string]*pending)}
}

// Request registers a pending approval and blocks until it is resolved,
// times out, or ctx is cancelled. The timeout path resolves exactly once as
// {approved:false, message:"Timed out", timedOut:true}.
func (g *Gate) Request(ctx context.Context, invocationID, sessionID string) Decision {
	p := &pending{sessionID: sessionID, ch: make(chan Decision, 1)}

	g.mu.Lock()
	g.pending[invocationID] = p
	g.mu.Unlock()

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case d := <-p.ch:
		return d

	case <-timer.C:
		if d, won := g.claim(invocationID, p); !won {
			// A resolver beat the timeout to the entry; honor its
			// decision instead of discarding it.
			return d
		}
		if g.OnTimeout != nil {
			g.OnTimeout(invocationID)
		}
		return Decision{Approved: false, Message: TimeoutMessage, TimedOut: true}

	case <-ctx.Done():
		if d, won := g.claim(invocationID, p); !won {
			return d
		}
		return Decision{Approved: false, Message: "Session ended"}
	}
}

// claim marks the requester's branch as the winner for this approval. When a
// resolver already claimed it, the in-flight decision is returned instead.
func (g *Gate) claim(invocationID string, p *pending) (Decision, bool) {
	g.mu.Lock()
	if p.claimed {
		g.mu.Unlock()
		return <-p.ch, false
	}
	p.claimed = true
	delete(g.pending, invocationID)
	g.mu.Unlock()
	return Decision{}, true
}

// Resolve fulfills a pending approval exactly once. Resolving an unknown or
// already-decided id is a no-op returning false, so a true return means the
// requester observed this decision.
func (g *Gate) Resolve(invocationID string, d Decision) bool {
	g.mu.Lock()
	p, ok := g.pending[invocationID]
	if ok {
		p.claimed = true
		delete(g.pending, invocationID)
	}
	g.mu.Unlock()

	if !ok {
		return false
	}
	p.ch <- d
	return true
}

// CancelAll denies every pending approval with the given reason, optionally
// scoped to one session. Called when a session ends so the agent subprocess
// is never left blocked on a dead approval.
func (g *Gate) CancelAll(reason, sessionID string) {
	g.mu.Lock()
	var cancelled []*pending
	for id, p := range g.pending {
		if sessionID != "" && p.sessionID != sessionID {
			continue
		}
		p.claimed = true
		cancelled = append(cancelled, p)
		delete(g.pending, id)
	}
	g.mu.Unlock()

	for _, p := range cancelled {
		p.ch <- Decision{Approved: false, Message: reason}
	}
}

// Pending reports whether an invocation id is awaiting resolution.
func (g *Gate) Pending(invocationID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[invocationID]
	return ok
}
