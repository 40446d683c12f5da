package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/longregen/refinery/internal/domain"
)

// Strategy identifies one of the refinement policies. The set is closed:
// dispatch is a tagged switch, not an open plugin hierarchy.
type Strategy string

const (
	StrategySelf    Strategy = "self"
	StrategyExample Strategy = "example"
	StrategyMetric  Strategy = "metric"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySelf, StrategyExample, StrategyMetric:
		return true
	}
	return false
}

// ModelConfig carries the model selection for a run. It is threaded
// explicitly through every call; there is no process-wide model state.
type ModelConfig struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// RefinementRequest describes a single refinement invocation. It is created
// per invocation and discarded after the call.
type RefinementRequest struct {
	SourcePrompt string      `json:"source_prompt"`
	Strategy     Strategy    `json:"strategy"`
	Model        ModelConfig `json:"model"`

	// MaxIterations bounds the metric-guided loop. Defaults to 3.
	MaxIterations int `json:"max_iterations,omitempty"`

	// NumExamples caps how many exemplars condition example-guided
	// refinement. Defaults to 3.
	NumExamples int `json:"num_examples,omitempty"`

	// ExamplesFile points at a pre-generated example cache. Empty means
	// one-phase mode: exemplars are generated in memory for this run.
	ExamplesFile string `json:"examples_file,omitempty"`

	// ExampleModel optionally overrides the model used for exemplar
	// generation. Nil means the run model is used.
	ExampleModel *ModelConfig `json:"example_model,omitempty"`
}

const (
	DefaultMaxIterations = 3
	DefaultNumExamples   = 3
)

// NewRefinementRequest returns a request with strategy defaults applied.
func NewRefinementRequest(prompt string, strategy Strategy, model ModelConfig) *RefinementRequest {
	return &RefinementRequest{
		SourcePrompt:  prompt,
		Strategy:      strategy,
		Model:         model,
		MaxIterations: DefaultMaxIterations,
		NumExamples:   DefaultNumExamples,
	}
}

// Validate checks the request invariants. It runs before any gateway call;
// every violation wraps domain.ErrInvalidRequest.
func (r *RefinementRequest) Validate() error {
	if strings.TrimSpace(r.SourcePrompt) == "" {
		return domain.NewDomainError(domain.ErrInvalidRequest, domain.ErrEmptyPrompt.Error())
	}
	if !r.Strategy.Valid() {
		return domain.NewDomainError(domain.ErrInvalidRequest, fmt.Sprintf("unknown strategy %q", r.Strategy))
	}
	if r.Model.MaxTokens <= 0 {
		return domain.NewDomainError(domain.ErrInvalidRequest, fmt.Sprintf("max tokens must be positive, got %d", r.Model.MaxTokens))
	}
	if r.Strategy == StrategyMetric && r.MaxIterations < 1 {
		return domain.NewDomainError(domain.ErrInvalidRequest, fmt.Sprintf("max iterations must be at least 1, got %d", r.MaxIterations))
	}
	if r.Strategy == StrategyExample && r.NumExamples < 1 {
		return domain.NewDomainError(domain.ErrInvalidRequest, fmt.Sprintf("num examples must be at least 1, got %d", r.NumExamples))
	}
	if r.ExampleModel != nil && r.ExampleModel.MaxTokens <= 0 {
		return domain.NewDomainError(domain.ErrInvalidRequest, "example model max tokens must be positive")
	}
	return nil
}

// ExampleGenModel resolves the model used for exemplar generation.
func (r *RefinementRequest) ExampleGenModel() ModelConfig {
	if r.ExampleModel != nil {
		return *r.ExampleModel
	}
	return r.Model
}

// Candidate is one generated prompt rewrite plus its rationale. Immutable
// once created.
type Candidate struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text"`
	Analysis  string `json:"analysis,omitempty"`
	Iteration int    `json:"iteration"`
}

// BaselineCandidate wraps a source prompt as the zero-iteration candidate
// used to seed metric-guided refinement.
func BaselineCandidate(prompt string) Candidate {
	return Candidate{Text: prompt, Iteration: 0}
}

// Exemplar is a worked (original, analysis, improved) triple used to
// condition generation via few-shot context. Immutable once persisted.
type Exemplar struct {
	OriginalPrompt string `json:"original_prompt"`
	Analysis       string `json:"analysis"`
	ImprovedPrompt string `json:"improved_prompt"`
}

// Validate checks that all three fields are present and non-empty.
func (e Exemplar) Validate() error {
	if strings.TrimSpace(e.OriginalPrompt) == "" {
		return fmt.Errorf("exemplar missing original_prompt")
	}
	if strings.TrimSpace(e.Analysis) == "" {
		return fmt.Errorf("exemplar missing analysis")
	}
	if strings.TrimSpace(e.ImprovedPrompt) == "" {
		return fmt.Errorf("exemplar missing improved_prompt")
	}
	return nil
}

// TraceEntry records one candidate seen during a run together with its
// score card, if the strategy scored it.
type TraceEntry struct {
	Candidate Candidate  `json:"candidate"`
	Score     *ScoreCard `json:"score,omitempty"`
}

// RefinementResult is the outcome of a successful refinement run.
type RefinementResult struct {
	RunID         string       `json:"run_id"`
	Strategy      Strategy     `json:"strategy"`
	FinalPrompt   string       `json:"final_prompt"`
	IterationsRun int          `json:"iterations_run"`
	Trace         []TraceEntry `json:"trace"`
	StartedAt     time.Time    `json:"started_at"`
	CompletedAt   time.Time    `json:"completed_at"`
}
