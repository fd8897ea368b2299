package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/calegria/deskagent/internal/agent"
	"github.com/calegria/deskagent/internal/approval"
	"github.com/calegria/deskagent/internal/chat"
	"github.com/calegria/deskagent/internal/config"
	"github.com/calegria/deskagent/internal/fallback"
	"github.com/calegria/deskagent/internal/log"
	"github.com/calegria/deskagent/internal/mcp"
	"github.com/calegria/deskagent/internal/registry"
	"github.com/calegria/deskagent/internal/skill"
	"github.com/calegria/deskagent/internal/store"
	"github.com/calegria/deskagent/internal/tui"
	"github.com/calegria/deskagent/internal/workspace"
)

var version = "0.1.0"

var (
	flagWorkDir      string
	flagConversation string
	flagPlan         bool
)

func init() {
	// Load .env file if it exists (silent fail if not found)
	_ = godotenv.Load()

	// Initialize logging (enabled via DESKAGENT_DEBUG=1)
	_ = log.Init()

	rootCmd.Flags().StringVarP(&flagWorkDir, "dir", "d", "", "working directory for the agent (defaults to cwd)")
	rootCmd.Flags().StringVarP(&flagConversation, "conversation", "c", "", "resume an existing conversation id")
	rootCmd.Flags().BoolVar(&flagPlan, "plan", false, "start in plan mode (read-only, markdown edits only)")

	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
	cacheCmd.AddCommand(cacheResetCmd)
}

func main() {
	defer log.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "deskagent",
	Short: "Deskagent - a terminal chat client for coding agents",
	Long: `Deskagent is a terminal chat client that drives a coding agent
subprocess, with plan mode, tool approvals, MCP server filtering and an
offline fallback against a local model runner.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}
		return tui.Run(&tui.App{
			Orchestrator:   env.orchestrator,
			WorkingDir:     env.workDir,
			ConversationID: flagConversation,
			PlanMode:       flagPlan,
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the deskagent version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("deskagent", version)
	},
}

// env holds everything built at process start. All collaborators are wired
// here once and injected; nothing below main reaches for globals.
type env struct {
	orchestrator *chat.Orchestrator
	store        *store.FileStore
	caches       *chat.Caches
	workDir      string
}

func buildEnv() (*env, error) {
	loader := config.NewLoader()
	settings, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := loader.EnsureUserDir(); err != nil {
		return nil, err
	}
	baseDir := loader.UserDir()

	st, err := store.NewFileStore(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	resolver, err := workspace.NewResolver()
	if err != nil {
		return nil, err
	}

	skills := skill.NewLoader(baseDir)
	initCache := workspace.NewInitCache()
	setup := workspace.NewSetup(
		filepath.Join(baseDir, "session-config"),
		skills.SkillsDir(),
		skills.AgentsDir(),
		initCache,
	)

	caches := chat.NewCaches(
		mcp.NewConfigCache(filepath.Join(baseDir, "mcp.json")),
		mcp.NewStatusCache(filepath.Join(baseDir, "mcp-status.json")),
		initCache,
		func() agent.Runtime {
			return agent.NewSubprocessRuntime(settings.AgentExecutable)
		},
	)

	gate := approval.NewGate()
	if settings.ApprovalTimeoutSec > 0 {
		gate.Timeout = time.Duration(settings.ApprovalTimeoutSec) * time.Second
	}

	workDir := flagWorkDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	orch := chat.New(chat.Deps{
		Store:    st,
		Registry: registry.New(),
		Gate:     gate,
		Caches:   caches,
		Resolver: resolver,
		Setup:    setup,
		Settings: settings,
		Skills:   skills,
		Offline:  fallback.NewOpenAIStreamer(settings.OfflineBaseURL, settings.OfflineModel),
	})

	return &env{
		orchestrator: orch,
		store:        st,
		caches:       caches,
		workDir:      workDir,
	}, nil
}
