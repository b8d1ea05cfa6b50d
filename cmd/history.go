package main

import (
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <lead-id>",
	Short: "Show a lead's stage timeline, most recent first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entries, err := env.Engine.StageTimeline(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
