package prompt

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
)

// Signature wraps dspy-go's signature with the field-name bookkeeping the
// engine needs for structural rendering and parsing. Signatures are declared
// statically in the registry below; the engine never constructs one at
// runtime from model output.
type Signature struct {
	core.Signature
	Name        string
	Description string
}

// InputNames returns the declared input field names in order.
func (s Signature) InputNames() []string {
	names := make([]string, len(s.Inputs))
	for i, f := range s.Inputs {
		names[i] = f.Name
	}
	return names
}

// OutputNames returns the declared output field names in order.
func (s Signature) OutputNames() []string {
	names := make([]string, len(s.Outputs))
	for i, f := range s.Outputs {
		names[i] = f.Name
	}
	return names
}

// MustParseSignature creates a signature from a string or panics
func MustParseSignature(name, desc, sig string) Signature {
	s, err := ParseSignature(name, desc, sig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse signature: %v", err))
	}
	return s
}

// ParseSignature creates a signature from a string like
// "input1, input2 -> output1, output2"
func ParseSignature(name, desc, sig string) (Signature, error) {
	parts := strings.Split(sig, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format: %s", sig)
	}

	inputNames := parseFields(strings.TrimSpace(parts[0]))
	outputNames := parseFields(strings.TrimSpace(parts[1]))
	if len(inputNames) == 0 || len(outputNames) == 0 {
		return Signature{}, fmt.Errorf("signature needs at least one input and one output: %s", sig)
	}

	inputs := make([]core.InputField, len(inputNames))
	for i, n := range inputNames {
		inputs[i] = core.InputField{Field: core.NewField(n)}
	}

	outputs := make([]core.OutputField, len(outputNames))
	for i, n := range outputNames {
		outputs[i] = core.OutputField{Field: core.NewField(n)}
	}

	return Signature{
		Signature:   core.NewSignature(inputs, outputs),
		Name:        name,
		Description: desc,
	}, nil
}

// parseFields splits a comma-separated field list into names.
func parseFields(fieldStr string) []string {
	if fieldStr == "" {
		return nil
	}

	parts := strings.Split(fieldStr, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		names = append(names, part)
	}
	return names
}

// Registry IDs for the fixed instruction set. Each LLM round-trip the
// engine performs executes exactly one of these.
const (
	InstructionRewrite        = "rewrite_prompt"
	InstructionRefine         = "refine_prompt"
	InstructionRefineExamples = "refine_with_examples"
	InstructionEvaluateMetric = "evaluate_metric"
	InstructionGenExemplar    = "generate_exemplar"
)

// Statically declared signatures for every instruction the engine issues.
var (
	// RewritePrompt produces a rewrite alone, without a rationale field.
	RewritePrompt = MustParseSignature(
		InstructionRewrite,
		"Generate an improved version of the prompt.",
		"prompt -> improved_prompt",
	)

	// RefinePrompt requests an explicit rationale before the rewrite.
	RefinePrompt = MustParseSignature(
		InstructionRefine,
		"Refine a prompt to make it more effective. Analyze its strengths and weaknesses, then produce a refined version that addresses the weaknesses.",
		"prompt -> analysis, improved_prompt",
	)

	// RefineWithExamples conditions the refinement on worked exemplars.
	RefineWithExamples = MustParseSignature(
		InstructionRefineExamples,
		"Refine a prompt based on examples of good prompt transformations. Learn from the examples, analyze the prompt, then produce a refined version.",
		"prompt, examples -> analysis, improved_prompt",
	)

	// EvaluateMetric scores a prompt on a single named metric.
	EvaluateMetric = MustParseSignature(
		InstructionEvaluateMetric,
		"Evaluate the prompt on the named metric. Respond with a numeric score inside the declared range and brief feedback.",
		"prompt, metric, range -> score, feedback",
	)

	// GenerateExemplar synthesizes one worked prompt-improvement triple.
	GenerateExemplar = MustParseSignature(
		InstructionGenExemplar,
		"Generate one example of prompt optimization: a flawed original prompt, an analysis of its weaknesses, and an improved version demonstrating techniques like added specificity, context, constraints, output format requirements, or role clarification.",
		"task_description, variation -> original_prompt, analysis, improved_prompt",
	)
)

var registry = map[string]Signature{
	InstructionRewrite:        RewritePrompt,
	InstructionRefine:         RefinePrompt,
	InstructionRefineExamples: RefineWithExamples,
	InstructionEvaluateMetric: EvaluateMetric,
	InstructionGenExemplar:    GenerateExemplar,
}

// Lookup returns the signature registered under id.
func Lookup(id string) (Signature, bool) {
	sig, ok := registry[id]
	return sig, ok
}
