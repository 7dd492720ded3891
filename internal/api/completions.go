package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/score"
)

// CompletionRequest is the request body for a one-off completion
type CompletionRequest struct {
	Prompt      string            `json:"prompt"`
	Variables   map[string]string `json:"variables,omitempty"`
	Input       string            `json:"input,omitempty"`
	Provider    string            `json:"provider"`
	Model       string            `json:"model,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	MaxTokens   int               `json:"max_tokens,omitempty"`
	TimeoutMS   int               `json:"timeout_ms,omitempty"`
	APIKey      string            `json:"api_key,omitempty"`
	DirectOnly  bool              `json:"direct_only,omitempty"`
}

func (s *Server) createCompletion(w http.ResponseWriter, r *http.Request) {
	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	provider, err := llm.ParseProvider(req.Provider)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.llm.Complete(r.Context(), &llm.Request{
		Prompt:      req.Prompt,
		Variables:   req.Variables,
		Input:       req.Input,
		Provider:    provider,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Timeout:     time.Duration(req.TimeoutMS) * time.Millisecond,
		APIKey:      req.APIKey,
		DirectOnly:  req.DirectOnly,
	})
	if err != nil {
		var completionErr *llm.Error
		if errors.As(err, &completionErr) {
			respondJSON(w, http.StatusBadGateway, completionErr)
			return
		}
		log.Error().Err(err).Msg("completion failed")
		respondError(w, http.StatusInternalServerError, "completion failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ScoreRequest is the request body for a one-off comparison
type ScoreRequest struct {
	Expected json.RawMessage `json:"expected"`
	Actual   string          `json:"actual"`
}

// ScoreResponse carries the similarity score
type ScoreResponse struct {
	Score float64 `json:"score"`
}

func (s *Server) scoreResponse(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	expected := score.ParseExpected(req.Expected)
	respondJSON(w, http.StatusOK, ScoreResponse{Score: score.Score(expected, req.Actual)})
}

// ProviderStatusResponse reports indirection health, per-provider
// availability and aggregate usage
type ProviderStatusResponse struct {
	Indirection string                `json:"indirection"`
	Providers   map[llm.Provider]bool `json:"providers"`
	Usage       llm.UsageStats        `json:"usage"`
}

func (s *Server) providerStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, ProviderStatusResponse{
		Indirection: string(s.llm.Status()),
		Providers:   s.llm.ProviderAvailability(),
		Usage:       s.llm.Tracker().Stats(),
	})
}

func (s *Server) refreshProviders(w http.ResponseWriter, r *http.Request) {
	status := s.llm.RefreshHealth(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{"indirection": string(status)})
}
