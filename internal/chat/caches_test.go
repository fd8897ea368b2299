package chat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/mcp"
	"github.com/calegria/deskagent/internal/workspace"
)

func TestCachesMemoizeRuntime(t *testing.T) {
	built := 0
	c := NewCaches(
		mcp.NewConfigCache(filepath.Join(t.TempDir(), "mcp.json")),
		mcp.NewStatusCache(filepath.Join(t.TempDir(), "status.json")),
		workspace.NewInitCache(),
		func() agent.Runtime { built++; return &agent.FakeRuntime{} },
	)

	c.Runtime()
	c.Runtime()
	if built != 1 {
		t.Errorf("runtime built %d times, want memoized", built)
	}
}

func TestResetAllClearsEverything(t *testing.T) {
	statusPath := filepath.Join(t.TempDir(), "status.json")
	built := 0
	c := NewCaches(
		mcp.NewConfigCache(filepath.Join(t.TempDir(), "mcp.json")),
		mcp.NewStatusCache(statusPath),
		workspace.NewInitCache(),
		func() agent.Runtime { built++; return &agent.FakeRuntime{} },
	)

	c.Runtime()
	if err := c.Status.SetStatus("/p", "srv", mcp.StatusFailed); err != nil {
		t.Fatal(err)
	}
	if err := c.Init.Once("k", func() error { return nil }); err != nil {
		t.Fatal(err)
	}

	if err := c.ResetAll(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(statusPath); !os.IsNotExist(err) {
		t.Error("status file must be deleted")
	}
	if c.Init.Done("k") {
		t.Error("init cache must be cleared")
	}
	if _, ok := c.Status.Status("/p", "srv"); ok {
		t.Error("status cache must be cleared")
	}
	c.Runtime()
	if built != 2 {
		t.Errorf("runtime handle must be dropped on reset, built = %d", built)
	}
}

func TestPlanToolAllowedTable(t *testing.T) {
	cases := []struct {
		name  string
		tool  string
		input string
		want  bool
	}{
		{"bash denied", "Bash", `{"command":"ls"}`, false},
		{"edit markdown allowed", "Edit", `{"file_path":"notes/PLAN.md"}`, true},
		{"edit source denied", "Edit", `{"file_path":"main.go"}`, false},
		{"write markdown allowed", "Write", `{"file_path":"README.md","content":"x"}`, true},
		{"write source denied", "Write", `{"file_path":"a/b/c.py","content":"x"}`, false},
		{"read allowed", "Read", `{"file_path":"main.go"}`, true},
		{"edit without path denied", "Edit", `{}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := planToolAllowed(tc.tool, []byte(tc.input))
			if got != tc.want {
				t.Errorf("allowed = %v (%s), want %v", got, reason, tc.want)
			}
		})
	}
}
