package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/prompt"
)

// Gateway implements ports.ModelGateway over the OpenAI-compatible client.
// It renders a registered signature into chat messages, issues one blocking
// round-trip, and structurally parses the declared output fields.
type Gateway struct {
	client *Client
}

// NewGateway creates a gateway backed by client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// Complete executes one registered instruction. Failures map onto the
// domain sentinels: transport and API failures become ErrGatewayUnavailable,
// a completion cut off by the token budget becomes ErrTruncated, and a
// response missing any declared output field becomes ErrMalformedOutput.
func (g *Gateway) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	sig, ok := prompt.Lookup(req.Instruction)
	if !ok {
		return nil, domain.NewDomainError(domain.ErrUnknownInstruction, req.Instruction)
	}

	names := make([]string, len(req.Inputs))
	values := make([]string, len(req.Inputs))
	for i, f := range req.Inputs {
		names[i] = f.Name
		values[i] = f.Value
	}

	messages := []ChatMessage{
		{Role: "system", Content: prompt.RenderSystem(sig)},
		{Role: "user", Content: prompt.RenderUser(names, values)},
	}

	resp, err := g.client.Chat(ctx, messages, req.MaxTokens)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("instruction %s abandoned: %w", req.Instruction, err)
		}
		return nil, domain.NewDomainError(domain.ErrGatewayUnavailable,
			fmt.Sprintf("instruction %s failed: %v", req.Instruction, err))
	}

	if len(resp.Choices) == 0 {
		return nil, domain.NewDomainError(domain.ErrMalformedOutput,
			fmt.Sprintf("instruction %s returned no choices", req.Instruction))
	}

	choice := resp.Choices[0]

	// A completion that hit the budget is a hard failure of this call,
	// never a usable partial result: downstream parsing assumes complete
	// structured fields.
	if choice.FinishReason == "length" {
		return nil, domain.NewDomainError(domain.ErrTruncated,
			fmt.Sprintf("instruction %s hit the %d token budget", req.Instruction, req.MaxTokens))
	}

	fields, complete := prompt.ParseOutputs(sig, choice.Message.Content)
	if !complete {
		return nil, domain.NewDomainError(domain.ErrMalformedOutput,
			fmt.Sprintf("instruction %s response missing required fields", req.Instruction))
	}

	return &ports.CompletionResponse{Fields: fields}, nil
}
