package main

import (
	"github.com/spf13/cobra"
)

func newReceiptCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt <quest-id>",
		Short: "Show the bound outcome receipt for an exported quest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			bound, err := svc.Receipt(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, bound)
		},
	}
	return cmd
}
