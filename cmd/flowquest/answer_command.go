package main

import (
	"github.com/spf13/cobra"
)

func newAnswerCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer <quest-id> <step-id> <value>",
		Short: "Answer a checkpoint and re-render the affected shots",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.AnswerStep(cmd.Context(), args[0], args[1], parseValue(args[2]))
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	return cmd
}
