package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/longregen/refinery/internal/adapters/id"
	"github.com/longregen/refinery/internal/config"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/exemplar"
	"github.com/longregen/refinery/internal/history"
	"github.com/longregen/refinery/internal/llm"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/refine"
)

// Version information (set via ldflags)
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// Shared global variables
var (
	cfg       *config.Config
	llmClient *llm.Client
)

// buildGateway creates the model gateway for the main refinement model.
func buildGateway() ports.ModelGateway {
	return llm.NewGateway(llmClient)
}

// buildExampleGateway creates the gateway used for exemplar generation.
// When a separate example model is configured it gets its own client
// against the same endpoint.
func buildExampleGateway() ports.ModelGateway {
	if cfg.ExampleGen.Model == "" {
		return buildGateway()
	}
	client := llm.NewClient(cfg.LLM.URL, cfg.LLM.APIKey, cfg.ExampleGen.Model, cfg.LLM.Temperature)
	return llm.NewGateway(client)
}

// buildEngine wires the refinement engine from the loaded configuration.
func buildEngine() *refine.Engine {
	gateway := buildGateway()
	store := exemplar.NewStore(buildExampleGateway())
	return refine.NewEngine(gateway, store, id.New())
}

// buildRequest creates a refinement request with config defaults applied.
func buildRequest(prompt string, strategy models.Strategy) *models.RefinementRequest {
	req := models.NewRefinementRequest(prompt, strategy, models.ModelConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	req.MaxIterations = cfg.Refine.MaxIterations
	req.NumExamples = cfg.Refine.NumExamples
	if cfg.ExampleGen.Model != "" {
		req.ExampleModel = &models.ModelConfig{
			Model:       cfg.ExampleGen.Model,
			MaxTokens:   cfg.ExampleGen.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}
	}
	return req
}

// readPrompt resolves the source prompt from a positional argument, a file,
// or stdin, in that order of preference.
func readPrompt(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}

	info, err := os.Stdin.Stat()
	if err == nil && (info.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", fmt.Errorf("no prompt given: pass it as an argument, via --file, or on stdin")
}

// recordHistory appends the run to the local history log. Failures are
// warnings, never run failures.
func recordHistory(result *models.RefinementResult, sourcePrompt string) {
	log := history.NewLog(cfg.Data.HistoryFile)
	if err := log.Record(history.EntryFromResult(result, sourcePrompt, cfg.LLM.Model)); err != nil {
		slog.Warn("failed to record run history", "error", err)
	}
}

// printResult writes the refinement outcome to stdout, with the full trace
// on stderr when verbose is set.
func printResult(result *models.RefinementResult, verbose bool) {
	if verbose {
		fmt.Fprintf(os.Stderr, "Run %s (%s strategy, %d iterations)\n", result.RunID, result.Strategy, result.IterationsRun)
		for _, entry := range result.Trace {
			fmt.Fprintf(os.Stderr, "\n[iteration %d]\n", entry.Candidate.Iteration)
			if entry.Candidate.Analysis != "" {
				fmt.Fprintf(os.Stderr, "analysis: %s\n", entry.Candidate.Analysis)
			}
			if entry.Score != nil {
				fmt.Fprintf(os.Stderr, "score: %s\n", entry.Score)
			}
			fmt.Fprintf(os.Stderr, "prompt: %s\n", entry.Candidate.Text)
		}
		fmt.Fprintln(os.Stderr)
	}
	fmt.Println(result.FinalPrompt)
}

// maskSecret masks a secret string for display
func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "(set)"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
