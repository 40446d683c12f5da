package exemplar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/ports"
)

type stubGateway struct {
	calls     int
	failAfter int // fail on call number failAfter (1-based); 0 means never
	err       error
}

func (g *stubGateway) Complete(_ context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	g.calls++
	if g.failAfter > 0 && g.calls >= g.failAfter {
		if g.err != nil {
			return nil, g.err
		}
		return nil, domain.NewDomainError(domain.ErrGatewayUnavailable, "stub failure")
	}
	return &ports.CompletionResponse{
		Fields: map[string]string{
			"original_prompt": fmt.Sprintf("vague prompt %d", g.calls),
			"analysis":        fmt.Sprintf("analysis %d", g.calls),
			"improved_prompt": fmt.Sprintf("improved prompt %d", g.calls),
		},
	}, nil
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examples.json")
	store := NewStore(nil)

	want := []models.Exemplar{
		{OriginalPrompt: "write code", Analysis: "too vague", ImprovedPrompt: "write a Go function that parses ISO dates"},
		{OriginalPrompt: "fix it", Analysis: "no context", ImprovedPrompt: "fix the off-by-one error in the pagination loop"},
	}

	require.NoError(t, store.Save(path, want))

	got, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreLoadVersionedEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examples.json")
	content := `{"version": 1, "examples": [{"original_prompt": "a", "analysis": "b", "improved_prompt": "c"}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := NewStore(nil).Load(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].OriginalPrompt)
}

func TestStoreLoadFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "this is not json"},
		{"empty file", ""},
		{"empty array", "[]"},
		{"missing analysis", `[{"original_prompt": "a", "improved_prompt": "c"}]`},
		{"blank field", `[{"original_prompt": "a", "analysis": "  ", "improved_prompt": "c"}]`},
		{"one bad among good", `[{"original_prompt": "a", "analysis": "b", "improved_prompt": "c"}, {"original_prompt": "d"}]`},
		{"unknown version", `{"version": 7, "examples": [{"original_prompt": "a", "analysis": "b", "improved_prompt": "c"}]}`},
		{"envelope without examples", `{"version": 1, "examples": []}`},
	}

	store := NewStore(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "examples.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := store.Load(path)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
		})
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	_, err := NewStore(nil).Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, domain.ErrCacheCorrupt)
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	store := NewStore(nil)
	path := filepath.Join(t.TempDir(), "examples.json")

	err := store.Save(path, nil)
	assert.Error(t, err)

	err = store.Save(path, []models.Exemplar{{OriginalPrompt: "a"}})
	assert.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed save must not leave a file behind")
}

func TestStoreGenerate(t *testing.T) {
	gw := &stubGateway{}
	store := NewStore(gw)

	got, err := store.Generate(context.Background(), 3, models.ModelConfig{Model: "gen", MaxTokens: 512})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 3, gw.calls)
	assert.Equal(t, "vague prompt 2", got[1].OriginalPrompt)
}

func TestStoreGenerateAllOrNothing(t *testing.T) {
	gw := &stubGateway{failAfter: 2}
	store := NewStore(gw)

	got, err := store.Generate(context.Background(), 3, models.ModelConfig{Model: "gen", MaxTokens: 512})
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, domain.IsGatewayFailure(err))
}

func TestStoreGenerateToFileWritesNothingOnFailure(t *testing.T) {
	gw := &stubGateway{failAfter: 1, err: errors.New("boom")}
	store := NewStore(gw)
	path := filepath.Join(t.TempDir(), "examples.json")

	_, err := store.GenerateToFile(context.Background(), path, 2, models.ModelConfig{MaxTokens: 512})
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
