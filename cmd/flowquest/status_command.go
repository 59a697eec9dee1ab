package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [quest-id]",
		Short: "Show stored quests, or one quest with its cache counters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				record, err := svc.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				stats, err := svc.CacheStats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd, map[string]any{
					"id":       record.ID,
					"template": record.Template,
					"status":   record.Status,
					"updated":  record.UpdatedAt,
					"cache":    stats,
				})
			}

			quests, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			headers := []string{"ID", "TEMPLATE", "STATUS", "UPDATED"}
			rows := make([][]string, 0, len(quests))
			for _, q := range quests {
				rows = append(rows, []string{
					q.ID,
					q.Template,
					string(q.Status),
					q.UpdatedAt.Format("2006-01-02 15:04:05"),
				})
			}

			out := cmd.OutOrStdout()
			if stdoutIsTerminal() {
				fmt.Fprintln(out, renderTable(headers, rows, nil))
				return nil
			}
			fmt.Fprintln(out, strings.Join(headers, "\t"))
			for _, row := range rows {
				fmt.Fprintln(out, strings.Join(row, "\t"))
			}
			return nil
		},
	}
	return cmd
}

func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
