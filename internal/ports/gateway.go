package ports

import (
	"context"

	"github.com/longregen/refinery/internal/domain/models"
)

// CompletionField is one named input value for an instruction. Fields are
// passed as an ordered slice because rendering order is significant to the
// model.
type CompletionField struct {
	Name  string
	Value string
}

// CompletionRequest asks the gateway to execute one registered instruction
// with the given input fields under a token budget.
type CompletionRequest struct {
	// Instruction is the registry ID of the signature to execute.
	Instruction string
	Inputs      []CompletionField
	MaxTokens   int
}

// CompletionResponse carries the parsed output fields of a completed call.
// Every field declared by the instruction's signature is present and
// non-empty; a response missing any of them never reaches the caller.
type CompletionResponse struct {
	Fields map[string]string
}

// Field returns the named output field.
func (r *CompletionResponse) Field(name string) string {
	return r.Fields[name]
}

// ModelGateway is the abstract boundary to the underlying LLM completion
// service. Implementations map their failures onto the domain sentinels:
// domain.ErrGatewayUnavailable for transport/auth/quota failures,
// domain.ErrTruncated when output hit the token budget before completion
// (never a usable partial result), and domain.ErrMalformedOutput when a
// required output field is missing or empty.
type ModelGateway interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ExemplarSource supplies worked exemplars for example-guided refinement,
// either loaded from a cache file or synthesized for this run.
type ExemplarSource interface {
	// Load reads and validates a cache file. It fails closed: any schema
	// violation or incomplete entry rejects the whole file with
	// domain.ErrCacheCorrupt.
	Load(path string) ([]models.Exemplar, error)

	// Generate synthesizes n exemplars via independent gateway calls.
	// All-or-nothing: any single failure aborts the whole batch.
	Generate(ctx context.Context, n int, model models.ModelConfig) ([]models.Exemplar, error)
}

// IDGenerator produces identifiers for runs and candidates.
type IDGenerator interface {
	GenerateRunID() string
	GenerateCandidateID() string
}
