package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage deskagent caches",
	Long: `Manage the process caches deskagent keeps between turns:
the parsed MCP config, per-project MCP server health, and the per-session
workspace init markers.`,
}

var cacheResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all caches",
	Long: `Clear every cache: the parsed MCP config, the on-disk MCP server
status file and the workspace init markers. The agent runtime handle is
rebuilt on the next turn. Use this after editing mcp.json or when a server
is stuck reporting as failed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}
		if err := env.caches.ResetAll(); err != nil {
			return fmt.Errorf("failed to reset caches: %w", err)
		}
		fmt.Println("Caches cleared.")
		return nil
	},
}
