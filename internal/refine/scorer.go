package refine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/prompt"
)

// Metric is a single scored quality dimension with an inclusive value range.
type Metric struct {
	Name string
	Min  float64
	Max  float64
}

// DefaultMetrics returns the built-in scoring dimensions.
func DefaultMetrics() []Metric {
	return []Metric{
		{Name: "clarity", Min: 0, Max: 10},
		{Name: "specificity", Min: 0, Max: 10},
		{Name: "actionability", Min: 0, Max: 10},
	}
}

// Scorer evaluates a prompt against a fixed set of metrics, one gateway
// call per metric.
type Scorer struct {
	gateway ports.ModelGateway
	metrics []Metric
}

// NewScorer creates a scorer over metrics. An empty metric set falls back
// to DefaultMetrics.
func NewScorer(gateway ports.ModelGateway, metrics []Metric) *Scorer {
	if len(metrics) == 0 {
		metrics = DefaultMetrics()
	}
	return &Scorer{gateway: gateway, metrics: metrics}
}

// Score evaluates text on every metric concurrently and assembles the card
// in declared metric order regardless of completion order. If any metric
// call fails, the whole evaluation fails with the error of the
// lowest-indexed failing metric.
func (s *Scorer) Score(ctx context.Context, text string, maxTokens int) (*models.ScoreCard, error) {
	scores := make([]models.MetricScore, len(s.metrics))
	errs := make([]error, len(s.metrics))

	var wg sync.WaitGroup
	for i, m := range s.metrics {
		wg.Add(1)
		go func(i int, m Metric) {
			defer wg.Done()
			value, err := s.scoreOne(ctx, text, m, maxTokens)
			if err != nil {
				errs[i] = err
				return
			}
			scores[i] = models.MetricScore{Metric: m.Name, Value: value}
		}(i, m)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return &models.ScoreCard{Scores: scores}, nil
}

func (s *Scorer) scoreOne(ctx context.Context, text string, m Metric, maxTokens int) (float64, error) {
	resp, err := s.gateway.Complete(ctx, ports.CompletionRequest{
		Instruction: prompt.InstructionEvaluateMetric,
		Inputs: []ports.CompletionField{
			{Name: "prompt", Value: text},
			{Name: "metric", Value: m.Name},
			{Name: "range", Value: fmt.Sprintf("%g to %g", m.Min, m.Max)},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return 0, fmt.Errorf("scoring %s failed: %w", m.Name, err)
	}

	value, err := parseScore(resp.Field("score"))
	if err != nil {
		return 0, domain.NewDomainError(domain.ErrMalformedOutput,
			fmt.Sprintf("metric %s: %v", m.Name, err))
	}

	return clamp(value, m.Min, m.Max), nil
}

// parseScore extracts a number from the model's score field. Models
// sometimes pad the value with prose, so the first token that parses as a
// float wins.
func parseScore(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty score field")
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v, nil
	}
	for _, tok := range strings.Fields(raw) {
		tok = strings.Trim(tok, ",.;:()[]")
		if v, err := strconv.ParseFloat(tok, 64); err == nil {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no numeric value in %q", raw)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
