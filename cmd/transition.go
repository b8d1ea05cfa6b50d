package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-pipeline/internal/funnel"
	"github.com/sells-group/lead-pipeline/internal/model"
)

var transitionActor string

var transitionCmd = &cobra.Command{
	Use:   "transition <lead-id> <stage>",
	Short: "Move a lead to a funnel stage",
	Long:  "Moves a lead to any of the five funnel stages (lead, qualified, scheduled, held, won) and records the audited transition.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, err := model.ParseStage(args[1])
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		entry, err := env.Engine.TransitionStage(cmd.Context(), args[0], stage, transitionActor)
		if eris.Is(err, funnel.ErrNoOpTransition) {
			cmd.Printf("lead %s is already at stage %s\n", args[0], stage)
			return nil
		}
		if err != nil {
			return err
		}
		return printJSON(entry)
	},
}

func init() {
	transitionCmd.Flags().StringVar(&transitionActor, "actor", "", "who is making the change")
	rootCmd.AddCommand(transitionCmd)
}
