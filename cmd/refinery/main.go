package main

import (
	"fmt"
	"os"

	"github.com/longregen/refinery/internal/config"
	"github.com/longregen/refinery/internal/llm"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "refinery",
		Short: "Refinery - iterative prompt refinement CLI",
		Long: `Refinery improves prompts through LLM-driven refinement.
It supports self-refinement, example-guided refinement, and
metric-guided iterative optimization.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			llmClient = llm.NewClient(
				cfg.LLM.URL,
				cfg.LLM.APIKey,
				cfg.LLM.Model,
				cfg.LLM.Temperature,
			)

			return nil
		},
	}

	rootCmd.AddCommand(
		selfCmd(),
		exampleCmd(),
		metricCmd(),
		generateExamplesCmd(),
		historyCmd(),
		serveCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configCmd shows current configuration
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Current configuration:")
			fmt.Println()

			fmt.Println("LLM:")
			fmt.Printf("  URL:         %s\n", cfg.LLM.URL)
			fmt.Printf("  Model:       %s\n", cfg.LLM.Model)
			fmt.Printf("  Max Tokens:  %d\n", cfg.LLM.MaxTokens)
			fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
			fmt.Printf("  API Key:     %s\n", maskSecret(cfg.LLM.APIKey))
			fmt.Println()

			fmt.Println("Example Generation:")
			fmt.Printf("  Model:      %s\n", cfg.ExampleGenModel())
			fmt.Printf("  Max Tokens: %d\n", cfg.ExampleGen.MaxTokens)
			fmt.Println()

			fmt.Println("Refinement:")
			fmt.Printf("  Max Iterations: %d\n", cfg.Refine.MaxIterations)
			fmt.Printf("  Num Examples:   %d\n", cfg.Refine.NumExamples)
			fmt.Println()

			fmt.Println("Data:")
			fmt.Printf("  Directory: %s\n", cfg.Data.Dir)
			fmt.Printf("  History:   %s\n", cfg.Data.HistoryFile)
			fmt.Printf("  Examples:  %s\n", cfg.Data.ExamplesFile)
			fmt.Println()

			fmt.Println("Environment variables:")
			fmt.Println("  REFINERY_LLM_URL, REFINERY_LLM_API_KEY, REFINERY_LLM_MODEL")
			fmt.Println("  REFINERY_LLM_MAX_TOKENS, REFINERY_LLM_TEMPERATURE")
			fmt.Println("  REFINERY_EXAMPLE_MODEL, REFINERY_EXAMPLE_MAX_TOKENS")
			fmt.Println("  REFINERY_MAX_ITERATIONS, REFINERY_NUM_EXAMPLES")
			fmt.Println("  REFINERY_DATA_DIR, REFINERY_HISTORY_FILE, REFINERY_EXAMPLES_FILE")

			return nil
		},
	}
}

// versionCmd shows version information
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Refinery %s\n", version)
			fmt.Printf("  Commit:     %s\n", commit)
			fmt.Printf("  Build Date: %s\n", buildDate)
		},
	}
}
