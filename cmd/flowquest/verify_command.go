package main

import (
	"github.com/spf13/cobra"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <quest-id>",
		Short: "Run the outcome ruleset over a quest's answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			verdict, err := svc.Verify(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, verdict)
		},
	}
	return cmd
}
