package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a test double for the Client interface
type stubClient struct {
	name      Provider
	available bool
	result    *Result
	err       error
	callCount int
	lastReq   *Request
}

func newStubClient(name Provider) *stubClient {
	return &stubClient{
		name:      name,
		available: true,
		result: &Result{
			Provider:     name,
			Model:        "stub-model",
			Content:      "stub response",
			FinishReason: "stop",
		},
	}
}

func (s *stubClient) Name() Provider  { return s.name }
func (s *stubClient) Available() bool { return s.available }

func (s *stubClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	s.callCount++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	result := *s.result
	return &result, nil
}

// spyIndirection is a test double for the IndirectionCaller interface
type spyIndirection struct {
	healthy   bool
	result    *Result
	err       error
	callCount int
	lastReq   *Request
}

func (s *spyIndirection) HealthCheck(ctx context.Context) bool { return s.healthy }

func (s *spyIndirection) Complete(ctx context.Context, req *Request) (*Result, error) {
	s.callCount++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	result := *s.result
	return &result, nil
}

func newTestRouter(clients ...Client) *Router {
	r := &Router{
		clients: make(map[Provider]Client),
		tracker: NewUsageTracker(),
		health:  HealthUnknown,
	}
	for _, client := range clients {
		r.clients[client.Name()] = client
	}
	return r
}

func TestRouter_Complete_Direct(t *testing.T) {
	client := newStubClient(ProviderLocal)
	router := newTestRouter(client)

	result, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderLocal,
	})
	require.NoError(t, err)
	assert.Equal(t, "stub response", result.Content)
	assert.Equal(t, 1, client.callCount)
	assert.GreaterOrEqual(t, result.ResponseTimeMS, int64(0))
}

func TestRouter_Complete_AppliesDefaults(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.NoError(t, err)

	require.NotNil(t, client.lastReq)
	assert.Equal(t, DefaultTemperature, client.lastReq.Temperature)
	assert.Equal(t, DefaultMaxTokens, client.lastReq.MaxTokens)
	assert.Equal(t, DefaultTimeout, client.lastReq.Timeout)
}

func TestRouter_Complete_LocalTimeoutDefault(t *testing.T) {
	client := newStubClient(ProviderLocal)
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderLocal,
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultLocalTimeout, client.lastReq.Timeout)
}

func TestRouter_Complete_RendersVariables(t *testing.T) {
	client := newStubClient(ProviderMock)
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:    "Answer: {q}",
		Variables: map[string]string{"q": "what is 2+2"},
		Provider:  ProviderMock,
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer: what is 2+2", client.lastReq.Prompt)
}

func TestRouter_Complete_UnsupportedProvider(t *testing.T) {
	router := newTestRouter()

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: Provider("gemini"),
	})
	require.Error(t, err)

	var completionErr *Error
	require.ErrorAs(t, err, &completionErr)
	assert.Contains(t, completionErr.Message, "unsupported provider")
}

func TestRouter_Complete_EmptyPrompt(t *testing.T) {
	client := newStubClient(ProviderMock)
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "   ",
		Provider: ProviderMock,
	})
	require.Error(t, err)

	var completionErr *Error
	require.ErrorAs(t, err, &completionErr)
	assert.Contains(t, completionErr.Message, "empty")
	assert.Equal(t, 0, client.callCount)
}

func TestRouter_Complete_AdapterErrorWrapped(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	client.err = errors.New("API key is required for openai")
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
		Model:    "gpt-4o",
	})
	require.Error(t, err)

	var completionErr *Error
	require.ErrorAs(t, err, &completionErr)
	assert.Equal(t, ProviderOpenAI, completionErr.Provider)
	assert.Equal(t, "gpt-4o", completionErr.Model)
	assert.Contains(t, completionErr.Message, "API key is required")
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_IndirectionPreferred(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	indirection := &spyIndirection{
		healthy: true,
		result:  &Result{Model: "gpt-4o", Content: "routed response", FinishReason: "stop"},
	}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthAvailable)

	result, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.NoError(t, err)
	assert.Equal(t, "routed response", result.Content)
	assert.Equal(t, 1, indirection.callCount)
	assert.Equal(t, 0, client.callCount)

	// The caller's provider label survives indirection routing
	assert.Equal(t, ProviderOpenAI, result.Provider)
}

func TestRouter_Complete_IndirectionFallback(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	indirection := &spyIndirection{
		healthy: true,
		err:     ErrIndirectionUnreachable,
	}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthAvailable)

	result, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.NoError(t, err)
	assert.Equal(t, "stub response", result.Content)

	// Exactly one indirection attempt, then exactly one direct attempt
	assert.Equal(t, 1, indirection.callCount)
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_NoSecondFallback(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	client.err = errors.New("openai returned status 500")
	indirection := &spyIndirection{
		healthy: true,
		err:     ErrIndirectionRejected,
	}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthAvailable)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.Error(t, err)

	// One level of fallback only: both paths tried once, no retries
	assert.Equal(t, 1, indirection.callCount)
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_MockBypassesIndirection(t *testing.T) {
	client := newStubClient(ProviderMock)
	indirection := &spyIndirection{
		healthy: true,
		result:  &Result{Model: "gpt-4o", Content: "routed response"},
	}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthAvailable)

	result, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderMock,
	})
	require.NoError(t, err)
	assert.Equal(t, "stub response", result.Content)
	assert.Equal(t, 0, indirection.callCount)
}

func TestRouter_Complete_DirectOnlyBypassesIndirection(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	indirection := &spyIndirection{
		healthy: true,
		result:  &Result{Content: "routed response"},
	}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthAvailable)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:     "say hello",
		Provider:   ProviderOpenAI,
		DirectOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, indirection.callCount)
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_UnhealthyIndirectionSkipped(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	indirection := &spyIndirection{healthy: false}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	router.setHealth(HealthUnavailable)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, indirection.callCount)
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_UnknownHealthSkipsIndirection(t *testing.T) {
	client := newStubClient(ProviderOpenAI)
	indirection := &spyIndirection{healthy: true}

	router := newTestRouter(client)
	router.indirection = indirection
	router.preferIndirection = true
	// Health never refreshed, stays Unknown

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderOpenAI,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, indirection.callCount)
}

func TestRouter_RefreshHealth(t *testing.T) {
	t.Run("no_indirection_pins_unavailable", func(t *testing.T) {
		router := newTestRouter()

		status := router.RefreshHealth(context.Background())
		assert.Equal(t, HealthUnavailable, status)
		assert.Equal(t, HealthUnavailable, router.Status())
	})

	t.Run("healthy_probe", func(t *testing.T) {
		router := newTestRouter()
		router.indirection = &spyIndirection{healthy: true}

		status := router.RefreshHealth(context.Background())
		assert.Equal(t, HealthAvailable, status)
	})

	t.Run("unhealthy_probe", func(t *testing.T) {
		router := newTestRouter()
		router.indirection = &spyIndirection{healthy: false}

		status := router.RefreshHealth(context.Background())
		assert.Equal(t, HealthUnavailable, status)
	})

	t.Run("recovers_after_refresh", func(t *testing.T) {
		router := newTestRouter()
		indirection := &spyIndirection{healthy: false}
		router.indirection = indirection

		assert.Equal(t, HealthUnavailable, router.RefreshHealth(context.Background()))

		indirection.healthy = true
		assert.Equal(t, HealthAvailable, router.RefreshHealth(context.Background()))
	})
}

func TestRouter_Complete_CacheHit(t *testing.T) {
	client := newStubClient(ProviderMock)
	router := newTestRouter(client)
	router.cache = NewMemoryCache(10, time.Minute)

	req := &Request{Prompt: "say hello", Provider: ProviderMock}

	first, err := router.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := router.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, client.callCount)
}

func TestRouter_Complete_RecordsUsage(t *testing.T) {
	client := newStubClient(ProviderMock)
	client.result.Usage = Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	router := newTestRouter(client)

	_, err := router.Complete(context.Background(), &Request{
		Prompt:   "say hello",
		Provider: ProviderMock,
	})
	require.NoError(t, err)

	stats := router.Tracker().Stats()
	assert.Equal(t, int64(1), stats.TotalRequests)
	assert.Equal(t, int64(15), stats.TotalTokens)
}

func TestRouter_ProviderAvailability(t *testing.T) {
	available := newStubClient(ProviderMock)
	unavailable := newStubClient(ProviderOpenAI)
	unavailable.available = false

	router := newTestRouter(available, unavailable)

	availability := router.ProviderAvailability()
	assert.True(t, availability[ProviderMock])
	assert.False(t, availability[ProviderOpenAI])
}

func TestNewRouter_RegistersAllProviders(t *testing.T) {
	router, err := NewRouter(testConfig())
	require.NoError(t, err)

	for _, provider := range Providers {
		_, ok := router.clients[provider]
		assert.True(t, ok, "provider %s not registered", provider)
	}
	assert.Nil(t, router.indirection)
	assert.Equal(t, HealthUnknown, router.Status())
}

func TestRouter_EndToEnd_MockProvider(t *testing.T) {
	router, err := NewRouter(testConfig())
	require.NoError(t, err)

	result, err := router.Complete(context.Background(), &Request{
		Prompt:    "Answer: {q}",
		Variables: map[string]string{"q": "what is the capital of France"},
		Provider:  ProviderMock,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderMock, result.Provider)
	assert.Equal(t, "mock response for: Answer: what is the capital of France", result.Content)
	assert.Equal(t, "stop", result.FinishReason)
	assert.Positive(t, result.Usage.TotalTokens)
}
