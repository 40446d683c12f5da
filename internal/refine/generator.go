package refine

import (
	"context"
	"fmt"
	"strings"

	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/prompt"
)

// Generator produces improved prompt candidates through the model gateway.
// Each method maps to one registered instruction; every candidate it returns
// carries a fresh candidate ID.
type Generator struct {
	gateway ports.ModelGateway
	ids     ports.IDGenerator
}

func NewGenerator(gateway ports.ModelGateway, ids ports.IDGenerator) *Generator {
	return &Generator{gateway: gateway, ids: ids}
}

// Rewrite asks for a plain improved version of source. The resulting
// candidate carries no analysis.
func (g *Generator) Rewrite(ctx context.Context, source string, maxTokens, iteration int) (models.Candidate, error) {
	resp, err := g.gateway.Complete(ctx, ports.CompletionRequest{
		Instruction: prompt.InstructionRewrite,
		Inputs: []ports.CompletionField{
			{Name: "prompt", Value: source},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return models.Candidate{}, fmt.Errorf("prompt rewrite failed: %w", err)
	}

	return models.Candidate{
		ID:        g.ids.GenerateCandidateID(),
		Text:      resp.Field("improved_prompt"),
		Iteration: iteration,
	}, nil
}

// Analyze runs the two-field refinement instruction and returns both the
// model's analysis of the prompt's weaknesses and its improved version.
func (g *Generator) Analyze(ctx context.Context, source string, maxTokens, iteration int) (models.Candidate, error) {
	resp, err := g.gateway.Complete(ctx, ports.CompletionRequest{
		Instruction: prompt.InstructionRefine,
		Inputs: []ports.CompletionField{
			{Name: "prompt", Value: source},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return models.Candidate{}, fmt.Errorf("prompt analysis failed: %w", err)
	}

	return models.Candidate{
		ID:        g.ids.GenerateCandidateID(),
		Text:      resp.Field("improved_prompt"),
		Analysis:  resp.Field("analysis"),
		Iteration: iteration,
	}, nil
}

// RefineWithExemplars refines source guided by worked examples, which are
// rendered verbatim and in order into the instruction input.
func (g *Generator) RefineWithExemplars(ctx context.Context, source string, exemplars []models.Exemplar, maxTokens, iteration int) (models.Candidate, error) {
	resp, err := g.gateway.Complete(ctx, ports.CompletionRequest{
		Instruction: prompt.InstructionRefineExamples,
		Inputs: []ports.CompletionField{
			{Name: "prompt", Value: source},
			{Name: "examples", Value: FormatExemplars(exemplars)},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return models.Candidate{}, fmt.Errorf("example-guided refinement failed: %w", err)
	}

	return models.Candidate{
		ID:        g.ids.GenerateCandidateID(),
		Text:      resp.Field("improved_prompt"),
		Analysis:  resp.Field("analysis"),
		Iteration: iteration,
	}, nil
}

// FormatExemplars renders exemplars into the textual block handed to the
// refine_with_examples instruction.
func FormatExemplars(exemplars []models.Exemplar) string {
	blocks := make([]string, 0, len(exemplars))
	for _, ex := range exemplars {
		blocks = append(blocks, fmt.Sprintf("Original: %s\nAnalysis: %s\nImproved: %s",
			ex.OriginalPrompt, ex.Analysis, ex.ImprovedPrompt))
	}
	return strings.Join(blocks, "\n\n")
}
