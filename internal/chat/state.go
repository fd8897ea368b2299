package chat

import (
	"go.uber.org/zap"

	"github.com/calegria/deskagent/internal/log"
)

// State is the explicit lifecycle of one streaming session. Every turn moves
// through validating → resolving-workspace → preparing-context → streaming →
// finalizing, then lands on exactly one terminal.
type State int

const (
	StateValidating State = iota
	StateResolvingWorkspace
	StatePreparingContext
	StateStreaming
	StateFinalizing
	StateCompleted
	StateAborted
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating-input"
	case StateResolvingWorkspace:
		return "resolving-workspace"
	case StatePreparingContext:
		return "preparing-context"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// Terminal reports whether the state ends the session.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateErrored
}

// transitions is the allowed successor set per state. Every stage may jump
// straight to finalizing: aborts and errors are routed through the same
// finalize path as normal completion.
var transitions = map[State][]State{
	StateValidating:         {StateResolvingWorkspace, StateFinalizing},
	StateResolvingWorkspace: {StatePreparingContext, StateFinalizing},
	StatePreparingContext:   {StateStreaming, StateFinalizing},
	StateStreaming:          {StateFinalizing},
	StateFinalizing:         {StateCompleted, StateAborted, StateErrored},
}

// machine holds the current state and enforces legal transitions. An illegal
// transition is a programming error; it is logged and applied anyway so a bug
// degrades to a wrong label instead of a wedged session.
type machine struct {
	sessionID string
	state     State
}

func newMachine(sessionID string) *machine {
	return &machine{sessionID: sessionID, state: StateValidating}
}

func (m *machine) to(next State) {
	allowed := false
	for _, s := range transitions[m.state] {
		if s == next {
			allowed = true
			break
		}
	}
	if !allowed {
		log.Logger().Warn("Illegal session state transition",
			zap.String("session", m.sessionID),
			zap.String("from", m.state.String()),
			zap.String("to", next.String()))
	}
	log.Logger().Debug("Session state",
		zap.String("session", m.sessionID),
		zap.String("state", next.String()))
	m.state = next
}
