package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/db"
	"github.com/prompteval-hq/prompteval/internal/suite"
)

// CreateRunRequest is the request body for queuing a suite run
type CreateRunRequest struct {
	Suite suite.Suite `json:"suite"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil || s.publisher == nil {
		respondError(w, http.StatusServiceUnavailable, "run system not available")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Suite.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	suiteDef, err := json.Marshal(req.Suite)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid suite definition")
		return
	}

	run, err := s.runs.CreateRun(r.Context(), req.Suite.Name, suiteDef)
	if err != nil {
		log.Error().Err(err).Msg("failed to create run")
		respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	if err := s.publisher.PublishRun(r.Context(), run.ID); err != nil {
		log.Error().Err(err).Str("run_id", run.ID.String()).Msg("failed to queue run")
		respondError(w, http.StatusInternalServerError, "failed to queue run")
		return
	}

	respondJSON(w, http.StatusCreated, run)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run system not available")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get run")
		respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) getRunResults(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "run system not available")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	results, err := s.runs.ListRunResults(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Msg("failed to list results")
		respondError(w, http.StatusInternalServerError, "failed to list results")
		return
	}

	respondJSON(w, http.StatusOK, results)
}
