package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	var master bool

	cmd := &cobra.Command{
		Use:   "manifest <quest-id>",
		Short: "Print the current media playlist for a quest, or its master playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := cfg.Render.Quality + ".m3u8"
			if master {
				name = "master.m3u8"
			}
			path := filepath.Join(cfg.Paths.SegmentDir, args[0], name)
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no manifest published for quest %s", args[0])
				}
				return fmt.Errorf("read manifest: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&master, "master", false, "Print the master playlist instead of the media playlist")
	return cmd
}
