package exemplar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
	"github.com/longregen/refinery/internal/prompt"
)

// CacheVersion is the schema version written in the envelope form of the
// cache file. Bare-array files carry no version and are treated as version 1.
const CacheVersion = 1

// generationTask is the fixed task description sent with every exemplar
// synthesis call.
const generationTask = "Generate a diverse example of prompt optimization showing how to improve a vague, unclear, or poorly structured prompt. The example should demonstrate common prompt improvement techniques like adding specificity, context, constraints, output format requirements, or role clarification."

// Store generates, persists and reloads exemplar caches. It implements
// ports.ExemplarSource.
type Store struct {
	gateway ports.ModelGateway
}

// NewStore creates a store backed by gateway.
func NewStore(gateway ports.ModelGateway) *Store {
	return &Store{gateway: gateway}
}

// envelope is the optional versioned form of the cache file. Hand-authored
// files are usually a bare JSON array; both forms load identically.
type envelope struct {
	Version  int               `json:"version"`
	Examples []models.Exemplar `json:"examples"`
}

// Load reads and validates a cache file. It fails closed: any schema
// violation or incomplete entry rejects the whole file, so a corrupted or
// hand-edited cache is never silently partially loaded.
func (s *Store) Load(path string) ([]models.Exemplar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCacheCorrupt, fmt.Sprintf("cannot read %s: %v", path, err))
	}

	exemplars, err := decode(data)
	if err != nil {
		return nil, domain.NewDomainError(domain.ErrCacheCorrupt, fmt.Sprintf("%s: %v", path, err))
	}

	for i, ex := range exemplars {
		if err := ex.Validate(); err != nil {
			return nil, domain.NewDomainError(domain.ErrCacheCorrupt, fmt.Sprintf("%s: entry %d: %v", path, i, err))
		}
	}

	return exemplars, nil
}

func decode(data []byte) ([]models.Exemplar, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("file is empty")
	}

	var exemplars []models.Exemplar
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &exemplars); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
	} else {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		// A missing marker is tolerated; an unknown one is not.
		if env.Version != 0 && env.Version != CacheVersion {
			return nil, fmt.Errorf("unsupported schema version %d", env.Version)
		}
		exemplars = env.Examples
	}

	if len(exemplars) == 0 {
		return nil, fmt.Errorf("cache contains no exemplars")
	}
	return exemplars, nil
}

// Save writes exemplars to path atomically: the content lands in a temp
// file in the target directory and is renamed into place, so a crash
// mid-write never leaves a partial cache visible to a concurrent reader.
func (s *Store) Save(path string, exemplars []models.Exemplar) error {
	if len(exemplars) == 0 {
		return fmt.Errorf("refusing to write empty exemplar cache")
	}
	for i, ex := range exemplars {
		if err := ex.Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}

	data, err := json.MarshalIndent(exemplars, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal exemplars: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".exemplars-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move cache into place: %w", err)
	}
	return nil
}

// Generate synthesizes n exemplars through n independent gateway calls.
// All-or-nothing: any single failure aborts the whole batch, because a
// cache missing entries is worse than no cache.
func (s *Store) Generate(ctx context.Context, n int, model models.ModelConfig) ([]models.Exemplar, error) {
	if n < 1 {
		return nil, domain.NewDomainError(domain.ErrInvalidRequest, fmt.Sprintf("num examples must be at least 1, got %d", n))
	}

	exemplars := make([]models.Exemplar, 0, n)
	for i := 0; i < n; i++ {
		resp, err := s.gateway.Complete(ctx, ports.CompletionRequest{
			Instruction: prompt.InstructionGenExemplar,
			Inputs: []ports.CompletionField{
				{Name: "task_description", Value: generationTask},
				{Name: "variation", Value: strconv.Itoa(i + 1)},
			},
			MaxTokens: model.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("example generation failed at exemplar %d of %d: %w", i+1, n, err)
		}

		ex := models.Exemplar{
			OriginalPrompt: resp.Field("original_prompt"),
			Analysis:       resp.Field("analysis"),
			ImprovedPrompt: resp.Field("improved_prompt"),
		}
		if err := ex.Validate(); err != nil {
			return nil, domain.NewDomainError(domain.ErrMalformedOutput,
				fmt.Sprintf("exemplar %d of %d: %v", i+1, n, err))
		}
		exemplars = append(exemplars, ex)
	}

	return exemplars, nil
}

// GenerateToFile runs the generation phase and persists the result. The
// file is produced only after every requested exemplar succeeded.
func (s *Store) GenerateToFile(ctx context.Context, path string, n int, model models.ModelConfig) ([]models.Exemplar, error) {
	exemplars, err := s.Generate(ctx, n, model)
	if err != nil {
		return nil, err
	}
	if err := s.Save(path, exemplars); err != nil {
		return nil, err
	}
	return exemplars, nil
}
