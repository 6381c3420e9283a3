package main

import (
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-huella/pipeline"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newCompareCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <file-a> <file-b>",
		Short: "Compare two audio files and print their similarity as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			dataA, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			dataB, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[1], err)
			}

			engine := pipeline.NewSimilarityEngine(p)
			result, err := engine.CompareBytes(cmd.Context(), dataA, dataB)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	return cmd
}
