package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/config"
	"github.com/prompteval-hq/prompteval/internal/db"
	"github.com/prompteval-hq/prompteval/internal/llm"
)

// CompletionService is the routing surface the API exposes, satisfied by
// *llm.Router
type CompletionService interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Result, error)
	RefreshHealth(ctx context.Context) llm.HealthStatus
	Status() llm.HealthStatus
	ProviderAvailability() map[llm.Provider]bool
	Tracker() *llm.UsageTracker
}

// PromptStore is the prompt storage surface, satisfied by *db.Store
type PromptStore interface {
	CreatePrompt(ctx context.Context, name, content string) (*db.Prompt, error)
	GetPrompt(ctx context.Context, id uuid.UUID) (*db.Prompt, error)
	ListPrompts(ctx context.Context) ([]*db.Prompt, error)
	UpdatePrompt(ctx context.Context, id uuid.UUID, content string) (*db.Prompt, error)
	DeletePrompt(ctx context.Context, id uuid.UUID) error
}

// RunStore is the run storage surface, satisfied by *db.Store
type RunStore interface {
	CreateRun(ctx context.Context, suiteName string, suiteDef json.RawMessage) (*db.TestRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*db.TestRun, error)
	ListRunResults(ctx context.Context, runID uuid.UUID) ([]*db.TestResult, error)
}

// RunPublisher queues a created run for worker pickup, satisfied by
// *queue.Client
type RunPublisher interface {
	PublishRun(ctx context.Context, runID uuid.UUID) error
}

// StorageHealth reports backing-store connectivity for the readiness
// probe, satisfied by *db.DB
type StorageHealth interface {
	HealthCheck(ctx context.Context) error
}

// Server represents the API server
type Server struct {
	cfg       *config.Config
	router    *chi.Mux
	llm       CompletionService
	prompts   PromptStore
	runs      RunStore
	publisher RunPublisher
	dbHealth  StorageHealth
}

// ServerConfig wires the server's collaborators. Prompts, runs and
// publisher may be nil; the matching endpoints answer 503.
type ServerConfig struct {
	Config    *config.Config
	LLM       CompletionService
	Prompts   PromptStore
	Runs      RunStore
	Publisher RunPublisher
	DB        StorageHealth
}

// NewServer creates a new API server
func NewServer(cfg ServerConfig) (*Server, error) {
	s := &Server{
		cfg:       cfg.Config,
		router:    chi.NewRouter(),
		llm:       cfg.LLM,
		prompts:   cfg.Prompts,
		runs:      cfg.Runs,
		publisher: cfg.Publisher,
		dbHealth:  cfg.DB,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Prompts
		r.Route("/prompts", func(r chi.Router) {
			r.Post("/", s.createPrompt)
			r.Get("/", s.listPrompts)
			r.Get("/{promptID}", s.getPrompt)
			r.Put("/{promptID}", s.updatePrompt)
			r.Delete("/{promptID}", s.deletePrompt)
		})

		// Completions and scoring
		r.Post("/completions", s.createCompletion)
		r.Post("/score", s.scoreResponse)

		// Provider status
		r.Route("/providers", func(r chi.Router) {
			r.Get("/status", s.providerStatus)
			r.Post("/refresh", s.refreshProviders)
		})

		// Suite runs
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.createRun)
			r.Get("/{runID}", s.getRun)
			r.Get("/{runID}/results", s.getRunResults)
		})
	})
}

// Health check handlers
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{
		"status":      "ready",
		"indirection": string(s.llm.Status()),
	}

	if s.dbHealth != nil {
		if err := s.dbHealth.HealthCheck(r.Context()); err != nil {
			resp["status"] = "degraded"
			resp["database"] = "unavailable"
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error().Err(err).Msg("failed to encode response")
		}
	}
}

// respondError writes a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
