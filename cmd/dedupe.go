package main

import (
	"github.com/spf13/cobra"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <session-id>",
	Short: "Remove duplicate leads from a session",
	Long:  "Groups a session's leads by normalized email or phone and deletes every duplicate except the earliest-created lead of each group.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.Engine.DeduplicateSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		cmd.Printf("removed %d duplicate leads\n", removed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}
