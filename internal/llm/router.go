package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/config"
)

// HealthStatus is the indirection health state. It is process-wide per
// Router instance and only changes on an explicit refresh, trading a
// window of staleness for not probing on every request.
type HealthStatus string

const (
	HealthUnknown     HealthStatus = "unknown"
	HealthChecking    HealthStatus = "checking"
	HealthAvailable   HealthStatus = "available"
	HealthUnavailable HealthStatus = "unavailable"
)

// IndirectionCaller abstracts the indirection service for the router
type IndirectionCaller interface {
	HealthCheck(ctx context.Context) bool
	Complete(ctx context.Context, req *Request) (*Result, error)
}

// Router orchestrates completion requests: it renders the prompt, decides
// between the indirection service and a direct provider adapter, applies
// one level of fallback, and normalizes every outcome into *Result or
// *Error. It never lets a raw adapter error escape.
type Router struct {
	clients           map[Provider]Client
	indirection       IndirectionCaller
	preferIndirection bool
	cache             Cache
	tracker           *UsageTracker

	mu     sync.Mutex
	health HealthStatus
}

// NewRouter creates a router from application config. All four adapters
// are always registered; hosted ones report Available() false without a
// credential and fail fast when called anyway.
//
// The indirection health state starts as Unknown. Callers that want the
// indirection path should await RefreshHealth before accepting traffic.
func NewRouter(cfg *config.Config) (*Router, error) {
	r := &Router{
		clients: map[Provider]Client{
			ProviderOpenAI:    NewOpenAIClient(cfg.LLM.OpenAIKey, cfg.LLM.OpenAIModel),
			ProviderAnthropic: NewAnthropicClient(cfg.LLM.AnthropicKey, cfg.LLM.AnthropicModel),
			ProviderLocal:     NewOllamaClient(cfg.LLM.OllamaURL, cfg.LLM.OllamaModel),
			ProviderMock:      NewMockClient(),
		},
		preferIndirection: cfg.LLM.PreferIndirection,
		tracker:           NewUsageTracker(),
		health:            HealthUnknown,
	}

	if cfg.LLM.IndirectionURL != "" {
		r.indirection = NewIndirectionClient(cfg.LLM.IndirectionURL)
	}

	if cfg.LLM.CacheEnabled {
		r.cache = NewMemoryCache(0, 0)
	}

	return r, nil
}

// RefreshHealth probes the indirection service and updates the health
// state. Without a configured indirection service the state is pinned to
// Unavailable.
func (r *Router) RefreshHealth(ctx context.Context) HealthStatus {
	if r.indirection == nil {
		r.setHealth(HealthUnavailable)
		return HealthUnavailable
	}

	r.setHealth(HealthChecking)

	status := HealthUnavailable
	if r.indirection.HealthCheck(ctx) {
		status = HealthAvailable
	}
	r.setHealth(status)

	log.Debug().Str("status", string(status)).Msg("indirection health refreshed")
	return status
}

// Status returns the current indirection health state
func (r *Router) Status() HealthStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health
}

func (r *Router) setHealth(status HealthStatus) {
	r.mu.Lock()
	r.health = status
	r.mu.Unlock()
}

// Tracker returns the usage tracker
func (r *Router) Tracker() *UsageTracker {
	return r.tracker
}

// ProviderAvailability reports per-adapter availability without making a
// completion call. Hosted adapters only check credential presence; the
// local adapter probes its server.
func (r *Router) ProviderAvailability() map[Provider]bool {
	availability := make(map[Provider]bool, len(r.clients))
	for provider, client := range r.clients {
		availability[provider] = client.Available()
	}
	return availability
}

// Complete routes one completion request. The returned error, when
// non-nil, is always a *Error carrying provider, model and elapsed time.
func (r *Router) Complete(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	fail := func(message string) (*Result, error) {
		return nil, &Error{
			Provider:       req.Provider,
			Model:          req.Model,
			Message:        message,
			ResponseTimeMS: time.Since(start).Milliseconds(),
		}
	}

	if _, err := ParseProvider(string(req.Provider)); err != nil {
		return fail(err.Error())
	}

	rendered, err := RenderPrompt(req.Prompt, req.Variables, req.Input)
	if err != nil {
		return fail(err.Error())
	}

	norm := req.normalized(rendered)

	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, cacheKey(norm)); ok {
			result := *cached
			result.Cached = true
			result.ResponseTimeMS = time.Since(start).Milliseconds()
			return &result, nil
		}
	}

	if r.useIndirection(norm) {
		result, err := r.indirection.Complete(ctx, norm)
		if err == nil {
			// Preserve the caller's provider label for downstream
			// comparisons, not the routing service's internal one.
			result.Provider = norm.Provider
			return r.finish(ctx, norm, result, start), nil
		}

		log.Warn().
			Err(err).
			Bool("unreachable", errors.Is(err, ErrIndirectionUnreachable)).
			Bool("rejected", errors.Is(err, ErrIndirectionRejected)).
			Str("provider", string(norm.Provider)).
			Msg("indirection failed, falling back to direct provider")
	}

	client, ok := r.clients[norm.Provider]
	if !ok {
		return fail("unsupported provider: " + string(norm.Provider))
	}

	log.Debug().
		Str("provider", string(norm.Provider)).
		Str("model", norm.Model).
		Msg("routing request to direct provider")

	result, err := client.Complete(ctx, norm)
	if err != nil {
		// Flat one-level fallback: once in direct-provider mode, a
		// failure is reported, never retried.
		return fail(err.Error())
	}

	return r.finish(ctx, norm, result, start), nil
}

// finish stamps the end-to-end elapsed time, records usage and caches
// the result.
func (r *Router) finish(ctx context.Context, req *Request, result *Result, start time.Time) *Result {
	result.ResponseTimeMS = time.Since(start).Milliseconds()

	r.tracker.Record(UsageRecord{
		Provider:         result.Provider,
		Model:            result.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		DurationMS:       result.ResponseTimeMS,
	})

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey(req), result, 0); err != nil {
			log.Debug().Err(err).Msg("failed to cache completion")
		}
	}

	return result
}

// useIndirection reports whether the indirection path should be tried
// for this request. Mock bypasses indirection entirely; it is never
// routed externally.
func (r *Router) useIndirection(req *Request) bool {
	if r.indirection == nil || !r.preferIndirection || req.DirectOnly {
		return false
	}
	if req.Provider == ProviderMock {
		return false
	}
	return r.Status() == HealthAvailable
}
