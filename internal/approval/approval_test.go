package approval

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestResolveApproved(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	var got Decision
	wg.Add(1)
	go func() {
		defer wg.Done()
		got = g.Request(context.Background(), "inv-1", "s-1")
	}()

	waitPending(t, g, "inv-1")
	if !g.Resolve("inv-1", Decision{Approved: true}) {
		t.Fatal("Resolve returned false for a pending id")
	}
	wg.Wait()

	if !got.Approved {
		t.Error("expected approved decision")
	}
	if g.Pending("inv-1") {
		t.Error("entry must be removed after resolve")
	}
}

func TestResolveUnknownIsNoop(t *testing.T) {
	g := NewGate()
	if g.Resolve("ghost", Decision{Approved: true}) {
		t.Error("resolving an unknown id must return false")
	}
}

func TestTimeoutDeniesOnceAndNotifies(t *testing.T) {
	g := NewGate()
	g.Timeout = 20 * time.Millisecond

	var timeouts []string
	var mu sync.Mutex
	g.OnTimeout = func(id string) {
		mu.Lock()
		timeouts = append(timeouts, id)
		mu.Unlock()
	}

	d := g.Request(context.Background(), "inv-1", "s-1")
	if d.Approved {
		t.Error("timeout must deny")
	}
	if d.Message != TimeoutMessage {
		t.Errorf("expected message %q, got %q", TimeoutMessage, d.Message)
	}
	if !d.TimedOut {
		t.Error("timeout denial must be distinguishable from an explicit one")
	}

	mu.Lock()
	n := len(timeouts)
	mu.Unlock()
	if n != 1 || timeouts[0] != "inv-1" {
		t.Errorf("expected exactly one timeout notification for inv-1, got %v", timeouts)
	}

	// A late resolve must be a no-op.
	if g.Resolve("inv-1", Decision{Approved: true}) {
		t.Error("resolve after timeout must return false")
	}
}

func TestResolveTimeoutRaceSingleWinner(t *testing.T) {
	// Resolve racing the timeout must agree with the requester: a true
	// return means the requester saw that decision, never the denial.
	for i := 0; i < 100; i++ {
		g := NewGate()
		g.Timeout = time.Millisecond

		got := make(chan Decision, 1)
		go func() { got <- g.Request(context.Background(), "inv-1", "s-1") }()

		if i%2 == 0 {
			time.Sleep(time.Millisecond)
		}
		resolved := g.Resolve("inv-1", Decision{Approved: true})

		d := <-got
		if resolved && !d.Approved {
			t.Fatalf("iteration %d: Resolve reported success but requester got %+v", i, d)
		}
		if !resolved && !d.TimedOut {
			t.Fatalf("iteration %d: unresolved request returned %+v", i, d)
		}
	}
}

func TestCancelAllScopedToSession(t *testing.T) {
	g := NewGate()

	var wg sync.WaitGroup
	decisions := make([]Decision, 2)
	wg.Add(2)
	go func() { defer wg.Done(); decisions[0] = g.Request(context.Background(), "inv-a", "s-1") }()
	go func() { defer wg.Done(); decisions[1] = g.Request(context.Background(), "inv-b", "s-2") }()

	waitPending(t, g, "inv-a")
	waitPending(t, g, "inv-b")

	g.CancelAll("session ended", "s-1")

	// Only the s-1 approval resolves; s-2 stays pending.
	if g.Pending("inv-a") {
		t.Error("inv-a must be cancelled")
	}
	if !g.Pending("inv-b") {
		t.Error("inv-b must survive a scoped cancel")
	}

	g.CancelAll("shutdown", "")
	wg.Wait()

	if decisions[0].Approved || decisions[0].Message != "session ended" {
		t.Errorf("decision a: %+v", decisions[0])
	}
	if decisions[1].Approved || decisions[1].Message != "shutdown" {
		t.Errorf("decision b: %+v", decisions[1])
	}
}

func TestRequestContextCancel(t *testing.T) {
	g := NewGate()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	var got Decision
	wg.Add(1)
	go func() { defer wg.Done(); got = g.Request(ctx, "inv-1", "s-1") }()

	waitPending(t, g, "inv-1")
	cancel()
	wg.Wait()

	if got.Approved {
		t.Error("context cancel must deny")
	}
	if g.Pending("inv-1") {
		t.Error("entry must be removed on context cancel")
	}
}

func TestDiffPreview(t *testing.T) {
	out := DiffPreview("notes.md", "a\nb\n", "a\nc\n")
	if !strings.Contains(out, "-b") || !strings.Contains(out, "+c") {
		t.Errorf("unexpected diff:\n%s", out)
	}
}

func TestNewFilePreview(t *testing.T) {
	out := NewFilePreview("plan.md", "one\ntwo")
	if !strings.Contains(out, "+one") || !strings.Contains(out, "+two") {
		t.Errorf("unexpected preview:\n%s", out)
	}
	if !strings.Contains(out, "/dev/null") {
		t.Errorf("new-file preview must mark the old side empty:\n%s", out)
	}
}

func waitPending(t *testing.T, g *Gate, id string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if g.Pending(id) {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("approval %s never became pending", id)
}
