package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List known conversations",
	Long: `List the conversations deskagent has persisted, most recently
updated first, with the project path each one is pinned to. Pass an id to
the root command's --conversation flag to resume one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := buildEnv()
		if err != nil {
			return err
		}

		infos := env.store.Conversations()
		if len(infos) == 0 {
			fmt.Println("No conversations yet.")
			return nil
		}
		for _, info := range infos {
			fmt.Printf("%s  %s  %s\n",
				info.ID,
				info.UpdatedAt.Format("2006-01-02 15:04"),
				info.ProjectPath,
			)
		}
		return nil
	},
}
