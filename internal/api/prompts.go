package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/db"
)

// PromptRequest is the request body for creating or updating a prompt
type PromptRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) createPrompt(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		respondError(w, http.StatusServiceUnavailable, "prompt storage not available")
		return
	}

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "name and content are required")
		return
	}

	prompt, err := s.prompts.CreatePrompt(r.Context(), req.Name, req.Content)
	if err != nil {
		log.Error().Err(err).Msg("failed to create prompt")
		respondError(w, http.StatusInternalServerError, "failed to create prompt")
		return
	}

	respondJSON(w, http.StatusCreated, prompt)
}

func (s *Server) listPrompts(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		respondError(w, http.StatusServiceUnavailable, "prompt storage not available")
		return
	}

	prompts, err := s.prompts.ListPrompts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list prompts")
		respondError(w, http.StatusInternalServerError, "failed to list prompts")
		return
	}

	respondJSON(w, http.StatusOK, prompts)
}

func (s *Server) getPrompt(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		respondError(w, http.StatusServiceUnavailable, "prompt storage not available")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "promptID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prompt ID")
		return
	}

	prompt, err := s.prompts.GetPrompt(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get prompt")
		respondError(w, http.StatusInternalServerError, "failed to get prompt")
		return
	}

	respondJSON(w, http.StatusOK, prompt)
}

func (s *Server) updatePrompt(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		respondError(w, http.StatusServiceUnavailable, "prompt storage not available")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "promptID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prompt ID")
		return
	}

	var req PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" {
		respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	prompt, err := s.prompts.UpdatePrompt(r.Context(), id, req.Content)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to update prompt")
		respondError(w, http.StatusInternalServerError, "failed to update prompt")
		return
	}

	respondJSON(w, http.StatusOK, prompt)
}

func (s *Server) deletePrompt(w http.ResponseWriter, r *http.Request) {
	if s.prompts == nil {
		respondError(w, http.StatusServiceUnavailable, "prompt storage not available")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "promptID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid prompt ID")
		return
	}

	err = s.prompts.DeletePrompt(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to delete prompt")
		respondError(w, http.StatusInternalServerError, "failed to delete prompt")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
