package main

import (
	"context"
	"fmt"

	"github.com/longregen/refinery/internal/domain/models"
	"github.com/spf13/cobra"
)

// selfCmd refines a prompt in a single analyze-and-rewrite pass
func selfCmd() *cobra.Command {
	var (
		file    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "self [prompt]",
		Short: "Refine a prompt through self-analysis",
		Long: `Refine a prompt in a single pass: the model analyzes the prompt's
weaknesses and emits an improved version. The improved prompt is written
to stdout; with --verbose the analysis goes to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, file)
			if err != nil {
				return err
			}

			req := buildRequest(prompt, models.StrategySelf)
			result, err := buildEngine().Refine(context.Background(), req)
			if err != nil {
				return fmt.Errorf("refinement failed: %w", err)
			}

			recordHistory(result, prompt)
			printResult(result, verbose)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the prompt from a file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the analysis and trace to stderr")

	return cmd
}

// exampleCmd refines a prompt guided by worked exemplars
func exampleCmd() *cobra.Command {
	var (
		file         string
		examplesFile string
		numExamples  int
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "example [prompt]",
		Short: "Refine a prompt guided by worked examples",
		Long: `Refine a prompt conditioned on worked improvement examples.

With --examples the examples are loaded from a cache file previously
written by 'refinery generate-examples'. Without it, examples are
generated in memory for this run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, file)
			if err != nil {
				return err
			}

			req := buildRequest(prompt, models.StrategyExample)
			req.ExamplesFile = examplesFile
			if numExamples > 0 {
				req.NumExamples = numExamples
			}

			result, err := buildEngine().Refine(context.Background(), req)
			if err != nil {
				return fmt.Errorf("refinement failed: %w", err)
			}

			recordHistory(result, prompt)
			printResult(result, verbose)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the prompt from a file")
	cmd.Flags().StringVarP(&examplesFile, "examples", "e", "", "Load examples from a cache file")
	cmd.Flags().IntVarP(&numExamples, "num-examples", "n", 0, "Number of examples to use")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the analysis and trace to stderr")

	return cmd
}

// metricCmd refines a prompt through scored iterations
func metricCmd() *cobra.Command {
	var (
		file       string
		iterations int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "metric [prompt]",
		Short: "Refine a prompt through metric-guided iteration",
		Long: `Iteratively refine a prompt, scoring every candidate on clarity,
specificity, and actionability. The loop runs for the full iteration
budget and keeps the best-scoring candidate ever seen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, file)
			if err != nil {
				return err
			}

			req := buildRequest(prompt, models.StrategyMetric)
			if iterations > 0 {
				req.MaxIterations = iterations
			}

			result, err := buildEngine().Refine(context.Background(), req)
			if err != nil {
				return fmt.Errorf("refinement failed: %w", err)
			}

			recordHistory(result, prompt)
			printResult(result, verbose)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the prompt from a file")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 0, "Maximum refinement iterations")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print scores and trace to stderr")

	return cmd
}
