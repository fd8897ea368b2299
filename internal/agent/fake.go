package agent

import (
	"context"
	"sync"
)

// FakeRuntime replays a scripted sequence of events. Tests use it to drive
// the orchestrator without a real subprocess.
type FakeRuntime struct {
	// Script is replayed in order for every Query call. Entries with
	// KindControlRequest are routed through the approval callback instead
	// of the event channel, like the subprocess does.
	Script []RawMessage
	// StartErr, when set, is returned from Query before any event.
	StartErr error
	// LastOptions records the options of the most recent Query call.
	LastOptions Options
	// Calls counts Query invocations.
	Calls int

	mu        sync.Mutex
	approvals []Approval
}

func (f *FakeRuntime) Query(ctx context.Context, opts Options) (<-chan RawMessage, error) {
	f.Calls++
	f.LastOptions = opts
	if f.StartErr != nil {
		return nil, f.StartErr
	}

	ch := make(chan RawMessage)
	go func() {
		defer close(ch)
		for _, raw := range f.Script {
			if raw.Kind == KindControlRequest {
				a := Approval{Behavior: BehaviorAllow}
				if opts.ApproveTool != nil {
					a = opts.ApproveTool(ctx, raw.ToolName, raw.Input)
				}
				f.mu.Lock()
				f.approvals = append(f.approvals, a)
				f.mu.Unlock()
				continue
			}
			select {
			case ch <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Approvals returns the control-request answers recorded so far.
func (f *FakeRuntime) Approvals() []Approval {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Approval(nil), f.approvals...)
}

var _ Runtime = (*FakeRuntime)(nil)
