package main

import (
	"context"
	"fmt"

	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/exemplar"
	"github.com/spf13/cobra"
)

// generateExamplesCmd pre-generates an exemplar cache for two-phase
// example-guided refinement
func generateExamplesCmd() *cobra.Command {
	var (
		output string
		count  int
	)

	cmd := &cobra.Command{
		Use:   "generate-examples",
		Short: "Generate a reusable example cache",
		Long: `Generate worked prompt-improvement examples and write them to a
cache file. Later 'refinery example --examples <file>' runs reuse the
cache instead of regenerating examples per run.

Generation is all-or-nothing: the cache file is only written after
every requested example succeeded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("count must be at least 1, got %d", count)
			}
			path := output
			if path == "" {
				path = cfg.Data.ExamplesFile
			}

			store := exemplar.NewStore(buildExampleGateway())
			model := models.ModelConfig{
				Model:     cfg.ExampleGenModel(),
				MaxTokens: cfg.ExampleGen.MaxTokens,
			}

			exemplars, err := store.GenerateToFile(context.Background(), path, count, model)
			if err != nil {
				return fmt.Errorf("example generation failed: %w", err)
			}

			fmt.Printf("Wrote %d examples to %s (model: %s)\n", len(exemplars), path, model.Model)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Cache file to write (default: configured examples file)")
	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of examples to generate")

	return cmd
}
