package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"flowquest/internal/plan"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var templateKey string
	var inputFlags []string
	var planPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Plan a quest from a template or an external plan file and render the initial preview",
		RunE: func(cmd *cobra.Command, args []string) error {
			if planPath != "" && (cmd.Flags().Changed("template") || len(inputFlags) > 0) {
				return errors.New("--plan cannot be combined with --template or --input")
			}
			svc, cleanup, err := ctx.openService()
			if err != nil {
				return err
			}
			defer cleanup()

			if planPath != "" {
				payload, err := os.ReadFile(planPath)
				if err != nil {
					return fmt.Errorf("read plan file: %w", err)
				}
				result, err := svc.GenerateFromPlan(cmd.Context(), payload)
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			}

			inputs, err := parseInputs(inputFlags)
			if err != nil {
				return err
			}
			result, err := svc.Generate(cmd.Context(), templateKey, inputs)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	cmd.Flags().StringVarP(&templateKey, "template", "t", plan.TemplateSalesQuote, "Quest template key")
	cmd.Flags().StringArrayVarP(&inputFlags, "input", "i", nil, "Checkpoint pre-fill as key=value (repeatable)")
	cmd.Flags().StringVar(&planPath, "plan", "", "Path to an externally planned shot-graph JSON payload")
	return cmd
}

// parseInputs splits key=value flags, decoding values as JSON where possible
// so numbers and booleans keep their types.
func parseInputs(flags []string) (map[string]any, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	inputs := make(map[string]any, len(flags))
	for _, flag := range flags {
		key, value, found := strings.Cut(flag, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("input %q must be key=value", flag)
		}
		inputs[strings.TrimSpace(key)] = parseValue(value)
	}
	return inputs, nil
}

func parseValue(raw string) any {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		return decoded
	}
	return raw
}
