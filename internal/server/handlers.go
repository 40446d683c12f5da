package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/longregen/refinery/internal/config"
	"github.com/longregen/refinery/internal/domain"
	"github.com/longregen/refinery/internal/domain/models"
	"github.com/longregen/refinery/internal/history"
)

// Refiner runs refinement requests. Satisfied by refine.Engine.
type Refiner interface {
	Refine(ctx context.Context, req *models.RefinementRequest) (*models.RefinementResult, error)
}

// refineRequest is the JSON body of POST /v1/refinements.
type refineRequest struct {
	Prompt        string  `json:"prompt"`
	Strategy      string  `json:"strategy"`
	Model         string  `json:"model,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	MaxIterations int     `json:"max_iterations,omitempty"`
	NumExamples   int     `json:"num_examples,omitempty"`
	ExamplesFile  string  `json:"examples_file,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type refineHandler struct {
	engine  Refiner
	cfg     *config.Config
	log     *history.Log
	metrics *Metrics
}

func (h *refineHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body refineRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := h.buildRequest(body)
	result, err := h.engine.Refine(r.Context(), req)
	if err != nil {
		h.metrics.ObserveRefinement(string(req.Strategy), "error")
		writeRefineError(w, err)
		return
	}
	h.metrics.ObserveRefinement(string(req.Strategy), "ok")

	if h.log != nil {
		if err := h.log.Record(history.EntryFromResult(result, req.SourcePrompt, req.Model.Model)); err != nil {
			slog.Warn("failed to record run history", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// buildRequest fills config defaults and applies per-request overrides.
func (h *refineHandler) buildRequest(body refineRequest) *models.RefinementRequest {
	model := models.ModelConfig{
		Model:       h.cfg.LLM.Model,
		MaxTokens:   h.cfg.LLM.MaxTokens,
		Temperature: h.cfg.LLM.Temperature,
	}
	if body.Model != "" {
		model.Model = body.Model
	}
	if body.MaxTokens > 0 {
		model.MaxTokens = body.MaxTokens
	}
	if body.Temperature > 0 {
		model.Temperature = body.Temperature
	}

	req := models.NewRefinementRequest(body.Prompt, models.Strategy(body.Strategy), model)
	req.MaxIterations = h.cfg.Refine.MaxIterations
	req.NumExamples = h.cfg.Refine.NumExamples
	if body.MaxIterations > 0 {
		req.MaxIterations = body.MaxIterations
	}
	if body.NumExamples > 0 {
		req.NumExamples = body.NumExamples
	}
	req.ExamplesFile = body.ExamplesFile
	return req
}

// writeRefineError maps the domain error taxonomy onto HTTP statuses:
// invalid requests are the caller's fault, a corrupt cache is an
// unprocessable input, and gateway failures are an upstream problem.
func writeRefineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCacheCorrupt):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case domain.IsGatewayFailure(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		slog.Error("refinement failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

type historyHandler struct {
	log *history.Log
}

func (h *historyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := h.log.Load(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
