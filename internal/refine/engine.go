package refine

import (
	"context"
	"time"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
)

// Engine dispatches refinement requests to the strategy implementations.
// It owns no model state: the model configuration rides on each request.
type Engine struct {
	generator *Generator
	scorer    *Scorer
	exemplars ports.ExemplarSource
	ids       ports.IDGenerator
}

// NewEngine wires an engine over the given gateway and exemplar source,
// scoring with the default metric set.
func NewEngine(gateway ports.ModelGateway, exemplars ports.ExemplarSource, ids ports.IDGenerator) *Engine {
	return &Engine{
		generator: NewGenerator(gateway, ids),
		scorer:    NewScorer(gateway, nil),
		exemplars: exemplars,
		ids:       ids,
	}
}

// NewEngineWithMetrics is NewEngine with a custom metric set for the
// metric-guided strategy.
func NewEngineWithMetrics(gateway ports.ModelGateway, exemplars ports.ExemplarSource, ids ports.IDGenerator, metrics []Metric) *Engine {
	e := NewEngine(gateway, exemplars, ids)
	e.scorer = NewScorer(gateway, metrics)
	return e
}

// Refine runs one refinement pass. The request is validated before any
// model call is made; an invalid request never costs tokens.
func (e *Engine) Refine(ctx context.Context, req *models.RefinementRequest) (*models.RefinementResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &models.RefinementResult{
		RunID:     e.ids.GenerateRunID(),
		Strategy:  req.Strategy,
		StartedAt: time.Now().UTC(),
	}

	var err error
	switch req.Strategy {
	case models.StrategySelf:
		err = e.refineSelf(ctx, req, result)
	case models.StrategyExample:
		err = e.refineExample(ctx, req, result)
	case models.StrategyMetric:
		err = e.refineMetric(ctx, req, result)
	default:
		// Validate already rejected unknown strategies.
		err = domain.NewDomainError(domain.ErrUnknownStrategy, string(req.Strategy))
	}
	if err != nil {
		return nil, err
	}

	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// refineSelf performs a single analyze-and-rewrite pass: the model critiques
// the prompt and emits the improved version in one call.
func (e *Engine) refineSelf(ctx context.Context, req *models.RefinementRequest, result *models.RefinementResult) error {
	candidate, err := e.generator.Analyze(ctx, req.SourcePrompt, req.Model.MaxTokens, 1)
	if err != nil {
		return err
	}

	result.FinalPrompt = candidate.Text
	result.IterationsRun = 1
	result.Trace = []models.TraceEntry{{Candidate: candidate}}
	return nil
}

// refineExample conditions a single refinement pass on worked exemplars,
// loaded from a cache file when one is named or synthesized for this run
// otherwise.
func (e *Engine) refineExample(ctx context.Context, req *models.RefinementRequest, result *models.RefinementResult) error {
	exemplars, err := e.resolveExemplars(ctx, req)
	if err != nil {
		return err
	}

	candidate, err := e.generator.RefineWithExemplars(ctx, req.SourcePrompt, exemplars, req.Model.MaxTokens, 1)
	if err != nil {
		return err
	}

	result.FinalPrompt = candidate.Text
	result.IterationsRun = 1
	result.Trace = []models.TraceEntry{{Candidate: candidate}}
	return nil
}

func (e *Engine) resolveExemplars(ctx context.Context, req *models.RefinementRequest) ([]models.Exemplar, error) {
	if req.ExamplesFile != "" {
		exemplars, err := e.exemplars.Load(req.ExamplesFile)
		if err != nil {
			return nil, err
		}
		if len(exemplars) > req.NumExamples {
			exemplars = exemplars[:req.NumExamples]
		}
		return exemplars, nil
	}
	return e.exemplars.Generate(ctx, req.NumExamples, req.ExampleGenModel())
}

// refineMetric hill-climbs: the source prompt is scored once as the baseline,
// then each iteration rewrites the current best and keeps the rewrite only on
// strict total improvement, so ties never churn the incumbent. The loop
// always runs to the iteration cap; the result is the best candidate ever
// seen.
func (e *Engine) refineMetric(ctx context.Context, req *models.RefinementRequest, result *models.RefinementResult) error {
	best := models.BaselineCandidate(req.SourcePrompt)
	best.ID = e.ids.GenerateCandidateID()
	bestScore, err := e.scorer.Score(ctx, best.Text, req.Model.MaxTokens)
	if err != nil {
		return err
	}
	result.Trace = append(result.Trace, models.TraceEntry{Candidate: best, Score: bestScore})

	for i := 1; i <= req.MaxIterations; i++ {
		candidate, err := e.generator.Rewrite(ctx, best.Text, req.Model.MaxTokens, i)
		if err != nil {
			return err
		}

		score, err := e.scorer.Score(ctx, candidate.Text, req.Model.MaxTokens)
		if err != nil {
			return err
		}
		result.Trace = append(result.Trace, models.TraceEntry{Candidate: candidate, Score: score})

		if score.Better(bestScore) {
			best = candidate
			bestScore = score
		}
	}

	result.FinalPrompt = best.Text
	result.IterationsRun = req.MaxIterations
	return nil
}
