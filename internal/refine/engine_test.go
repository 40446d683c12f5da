package refine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/prompt"
)

// scriptGateway answers completions from a scripted handler and records
// every request it saw.
type scriptGateway struct {
	mu      sync.Mutex
	calls   []ports.CompletionRequest
	handler func(req ports.CompletionRequest) (*ports.CompletionResponse, error)
}

func (g *scriptGateway) Complete(_ context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, req)
	g.mu.Unlock()
	return g.handler(req)
}

func (g *scriptGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func input(req ports.CompletionRequest, name string) string {
	for _, f := range req.Inputs {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

type fixedIDs struct{}

func (fixedIDs) GenerateRunID() string       { return "rr_test" }
func (fixedIDs) GenerateCandidateID() string { return "rc_test" }

// stubExemplars is a canned exemplar source.
type stubExemplars struct {
	loaded    []models.Exemplar
	loadErr   error
	generated []models.Exemplar
	genErr    error
	genCalls  int
}

func (s *stubExemplars) Load(string) ([]models.Exemplar, error) {
	return s.loaded, s.loadErr
}

func (s *stubExemplars) Generate(context.Context, int, models.ModelConfig) ([]models.Exemplar, error) {
	s.genCalls++
	return s.generated, s.genErr
}

func request(strategy models.Strategy) *models.RefinementRequest {
	return models.NewRefinementRequest("Write something about dogs.", strategy, models.ModelConfig{
		Model:     "test-model",
		MaxTokens: 1024,
	})
}

// scoreTable routes evaluate_metric calls to fixed per-prompt values and
// everything else to the fallthrough handler.
func scoreTable(scores map[string]map[string]float64, rest func(req ports.CompletionRequest) (*ports.CompletionResponse, error)) func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	return func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		if req.Instruction != prompt.InstructionEvaluateMetric {
			return rest(req)
		}
		text := input(req, "prompt")
		metric := input(req, "metric")
		byMetric, ok := scores[text]
		if !ok {
			return nil, fmt.Errorf("no scripted scores for %q", text)
		}
		return &ports.CompletionResponse{Fields: map[string]string{
			"score":    fmt.Sprintf("%g", byMetric[metric]),
			"feedback": "scripted",
		}}, nil
	}
}

func TestRefineValidatesBeforeAnyGatewayCall(t *testing.T) {
	gw := &scriptGateway{handler: func(ports.CompletionRequest) (*ports.CompletionResponse, error) {
		t.Fatal("gateway must not be called for an invalid request")
		return nil, nil
	}}
	engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

	tests := []struct {
		name string
		req  *models.RefinementRequest
	}{
		{"empty prompt", models.NewRefinementRequest("   ", models.StrategySelf, models.ModelConfig{MaxTokens: 100})},
		{"unknown strategy", models.NewRefinementRequest("p", "genetic", models.ModelConfig{MaxTokens: 100})},
		{"zero token budget", models.NewRefinementRequest("p", models.StrategySelf, models.ModelConfig{})},
		{"zero iterations", func() *models.RefinementRequest {
			r := request(models.StrategyMetric)
			r.MaxIterations = 0
			return r
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.Refine(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, domain.ErrInvalidRequest)
			assert.Equal(t, 0, gw.callCount())
		})
	}
}

func TestRefineSelfSinglePass(t *testing.T) {
	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		require.Equal(t, prompt.InstructionRefine, req.Instruction)
		require.Equal(t, "Write something about dogs.", input(req, "prompt"))
		return &ports.CompletionResponse{Fields: map[string]string{
			"analysis":        "The prompt lacks audience and length.",
			"improved_prompt": "Write a 300-word article about dog training for new owners.",
		}}, nil
	}}
	engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

	result, err := engine.Refine(context.Background(), request(models.StrategySelf))
	require.NoError(t, err)

	assert.Equal(t, "rr_test", result.RunID)
	assert.Equal(t, models.StrategySelf, result.Strategy)
	assert.Equal(t, "Write a 300-word article about dog training for new owners.", result.FinalPrompt)
	assert.Equal(t, 1, result.IterationsRun)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "The prompt lacks audience and length.", result.Trace[0].Candidate.Analysis)
	assert.Equal(t, "rc_test", result.Trace[0].Candidate.ID)
	assert.Equal(t, 1, gw.callCount())
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
}

func TestRefineSelfTruncatedIsGatewayFailure(t *testing.T) {
	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		return nil, domain.NewDomainError(domain.ErrTruncated, "hit the 1024 token budget")
	}}
	engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

	result, err := engine.Refine(context.Background(), request(models.StrategySelf))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTruncated)
	assert.True(t, domain.IsGatewayFailure(err))
}

func TestRefineExampleLoadsCache(t *testing.T) {
	exemplars := []models.Exemplar{
		{OriginalPrompt: "o1", Analysis: "a1", ImprovedPrompt: "i1"},
		{OriginalPrompt: "o2", Analysis: "a2", ImprovedPrompt: "i2"},
	}
	source := &stubExemplars{loaded: exemplars}

	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		require.Equal(t, prompt.InstructionRefineExamples, req.Instruction)
		assert.Equal(t, "Original: o1\nAnalysis: a1\nImproved: i1\n\nOriginal: o2\nAnalysis: a2\nImproved: i2", input(req, "examples"))
		return &ports.CompletionResponse{Fields: map[string]string{
			"analysis":        "guided by the examples",
			"improved_prompt": "better prompt",
		}}, nil
	}}
	engine := NewEngine(gw, source, fixedIDs{})

	req := request(models.StrategyExample)
	req.ExamplesFile = "examples.json"

	result, err := engine.Refine(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "better prompt", result.FinalPrompt)
	assert.Equal(t, 1, result.IterationsRun)
	assert.Equal(t, 0, source.genCalls, "a named cache file must not trigger generation")
}

func TestRefineExampleClampsToNumExamples(t *testing.T) {
	source := &stubExemplars{loaded: []models.Exemplar{
		{OriginalPrompt: "o1", Analysis: "a1", ImprovedPrompt: "i1"},
		{OriginalPrompt: "o2", Analysis: "a2", ImprovedPrompt: "i2"},
		{OriginalPrompt: "o3", Analysis: "a3", ImprovedPrompt: "i3"},
	}}

	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		examples := input(req, "examples")
		assert.Contains(t, examples, "o1")
		assert.Contains(t, examples, "o2")
		assert.NotContains(t, examples, "o3")
		return &ports.CompletionResponse{Fields: map[string]string{
			"analysis":        "a",
			"improved_prompt": "p",
		}}, nil
	}}
	engine := NewEngine(gw, source, fixedIDs{})

	req := request(models.StrategyExample)
	req.ExamplesFile = "examples.json"
	req.NumExamples = 2

	_, err := engine.Refine(context.Background(), req)
	require.NoError(t, err)
}

func TestRefineExampleGeneratesWhenNoCacheNamed(t *testing.T) {
	source := &stubExemplars{generated: []models.Exemplar{
		{OriginalPrompt: "o", Analysis: "a", ImprovedPrompt: "i"},
	}}
	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		return &ports.CompletionResponse{Fields: map[string]string{
			"analysis":        "a",
			"improved_prompt": "p",
		}}, nil
	}}
	engine := NewEngine(gw, source, fixedIDs{})

	result, err := engine.Refine(context.Background(), request(models.StrategyExample))
	require.NoError(t, err)
	assert.Equal(t, "p", result.FinalPrompt)
	assert.Equal(t, 1, source.genCalls)
}

func TestRefineExampleCorruptCacheAborts(t *testing.T) {
	source := &stubExemplars{loadErr: domain.NewDomainError(domain.ErrCacheCorrupt, "entry 1 missing analysis")}
	gw := &scriptGateway{handler: func(ports.CompletionRequest) (*ports.CompletionResponse, error) {
		t.Fatal("no gateway call should happen when the cache is corrupt")
		return nil, nil
	}}
	engine := NewEngine(gw, source, fixedIDs{})

	req := request(models.StrategyExample)
	req.ExamplesFile = "bad.json"

	result, err := engine.Refine(context.Background(), req)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
	assert.False(t, domain.IsGatewayFailure(err))
	assert.Equal(t, 0, gw.callCount())
}

func TestRefineMetricKeepsBestEverSeen(t *testing.T) {
	// Baseline scores 9, the first rewrite scores 14, the second rewrite of
	// that candidate regresses to 6. The run must still finish both
	// iterations and return the first rewrite.
	scores := map[string]map[string]float64{
		"Write something about dogs.": {"clarity": 3, "specificity": 3, "actionability": 3},
		"first rewrite":               {"clarity": 5, "specificity": 5, "actionability": 4},
		"second rewrite":              {"clarity": 2, "specificity": 2, "actionability": 2},
	}
	rewrites := []string{"first rewrite", "second rewrite"}
	var rewriteCalls int

	gw := &scriptGateway{}
	gw.handler = scoreTable(scores, func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		require.Equal(t, prompt.InstructionRewrite, req.Instruction)
		text := rewrites[rewriteCalls]
		rewriteCalls++
		return &ports.CompletionResponse{Fields: map[string]string{"improved_prompt": text}}, nil
	})
	engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

	req := request(models.StrategyMetric)
	req.MaxIterations = 2

	result, err := engine.Refine(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "first rewrite", result.FinalPrompt)
	assert.Equal(t, 2, result.IterationsRun)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, 0, result.Trace[0].Candidate.Iteration)
	assert.Equal(t, 1, result.Trace[1].Candidate.Iteration)
	assert.Equal(t, 2, result.Trace[2].Candidate.Iteration)
	for _, entry := range result.Trace {
		assert.Equal(t, "rc_test", entry.Candidate.ID)
	}

	// The winner's total dominates every trace entry.
	var finalScore *models.ScoreCard
	for _, entry := range result.Trace {
		if entry.Candidate.Text == result.FinalPrompt {
			finalScore = entry.Score
		}
	}
	require.NotNil(t, finalScore)
	for _, entry := range result.Trace {
		assert.GreaterOrEqual(t, finalScore.Total(), entry.Score.Total())
	}

	// The second iteration rewrites the best candidate so far, not the
	// regressed one.
	assert.Equal(t, "first rewrite", input(gw.calls[len(gw.calls)-4], "prompt"))
}

func TestRefineMetricTieKeepsIncumbent(t *testing.T) {
	// Equal totals are not improvements: the incumbent survives, and the
	// outcome is identical on every run.
	scores := map[string]map[string]float64{
		"Write something about dogs.": {"clarity": 5, "specificity": 5, "actionability": 5},
		"tied rewrite":                {"clarity": 4, "specificity": 6, "actionability": 5},
	}

	for run := 0; run < 3; run++ {
		gw := &scriptGateway{}
		gw.handler = scoreTable(scores, func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
			return &ports.CompletionResponse{Fields: map[string]string{"improved_prompt": "tied rewrite"}}, nil
		})
		engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

		req := request(models.StrategyMetric)
		req.MaxIterations = 1

		result, err := engine.Refine(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Write something about dogs.", result.FinalPrompt)
	}
}

func TestRefineMetricScoringFailureAborts(t *testing.T) {
	gw := &scriptGateway{handler: func(req ports.CompletionRequest) (*ports.CompletionResponse, error) {
		return nil, domain.NewDomainError(domain.ErrGatewayUnavailable, "connection refused")
	}}
	engine := NewEngine(gw, &stubExemplars{}, fixedIDs{})

	result, err := engine.Refine(context.Background(), request(models.StrategyMetric))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrGatewayUnavailable)
}
