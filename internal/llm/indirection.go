package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Indirection call bounds
const (
	indirectionHealthTimeout   = 5 * time.Second
	indirectionCompleteTimeout = 60 * time.Second
)

// Indirection failure classes. All of them trigger the same router
// fallback; they exist so the failure mode shows up in logs.
var (
	// ErrIndirectionUnreachable means no response was received at all
	ErrIndirectionUnreachable = errors.New("indirection service unreachable")
	// ErrIndirectionRejected means the service answered with a non-2xx status
	ErrIndirectionRejected = errors.New("indirection service rejected request")
	// ErrIndirectionRequest means the request could not be built client-side
	ErrIndirectionRequest = errors.New("indirection request malformed")
)

// providerRouteNames maps this service's provider vocabulary to the
// indirection service's vocabulary. Mock is deliberately absent: it is
// never routed externally.
var providerRouteNames = map[Provider]string{
	ProviderOpenAI:    "openai",
	ProviderAnthropic: "anthropic",
	ProviderLocal:     "ollama",
}

// routeProviderNames is the reverse mapping, used to read responses that
// name the provider in the service's vocabulary.
var routeProviderNames = map[string]Provider{}

func init() {
	for provider, name := range providerRouteNames {
		if _, dup := routeProviderNames[name]; dup {
			panic(fmt.Sprintf("duplicate indirection route name %q", name))
		}
		routeProviderNames[name] = provider
	}
	for _, provider := range Providers {
		if provider == ProviderMock {
			continue
		}
		if _, ok := providerRouteNames[provider]; !ok {
			panic(fmt.Sprintf("provider %q has no indirection route name", provider))
		}
	}
}

// RouteName translates a provider into the indirection service's
// vocabulary. Mock has no route name.
func RouteName(p Provider) (string, error) {
	name, ok := providerRouteNames[p]
	if !ok {
		return "", fmt.Errorf("provider %q is not routable through indirection", p)
	}
	return name, nil
}

// RoutedProvider translates an indirection service provider name back
// into this service's vocabulary.
func RoutedProvider(name string) (Provider, bool) {
	p, ok := routeProviderNames[name]
	return p, ok
}

// IndirectionClient talks to a separately-addressable routing service
// that itself selects among providers. The router treats it as one more
// candidate path, preferred when healthy.
type IndirectionClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewIndirectionClient creates a client for the routing service
func NewIndirectionClient(baseURL string) *IndirectionClient {
	return &IndirectionClient{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// HealthCheck probes the routing service. It returns false on any error,
// timeout or non-200 status and never returns an error itself.
func (c *IndirectionClient) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, indirectionHealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// indirectionRequest is the routing service's completion request format
type indirectionRequest struct {
	Prompt          string                `json:"prompt"`
	SystemPrompt    string                `json:"system_prompt,omitempty"`
	Temperature     float64               `json:"temperature"`
	MaxTokens       int                   `json:"max_tokens"`
	ModelPreference indirectionPreference `json:"model_preference"`
	ResponseFormat  string                `json:"response_format"`
}

type indirectionPreference struct {
	Primary            string   `json:"primary"`
	Models             []string `json:"models,omitempty"`
	CostPriority       string   `json:"cost_priority"`
	LatencyRequirement string   `json:"latency_requirement"`
}

// indirectionResponse is the routing service's completion response format
type indirectionResponse struct {
	Content   string `json:"content"`
	ModelUsed string `json:"model_used"`
	Usage     struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Performance struct {
		ResponseTimeMS int64 `json:"response_time_ms"`
	} `json:"performance"`
}

// Complete forwards a completion request to the routing service. The
// returned result carries the routing service's provider label; the
// router rewrites it to the caller's requested provider.
func (c *IndirectionClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	routeName, err := RouteName(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndirectionRequest, err)
	}

	indReq := indirectionRequest{
		Prompt:      req.Prompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		ModelPreference: indirectionPreference{
			Primary:            routeName,
			CostPriority:       "balanced",
			LatencyRequirement: "normal",
		},
		ResponseFormat: "text",
	}
	if req.Model != "" {
		indReq.ModelPreference.Models = []string{req.Model}
	}

	body, err := json.Marshal(indReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndirectionRequest, err)
	}

	ctx, cancel := context.WithTimeout(ctx, indirectionCompleteTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/complete", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndirectionRequest, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndirectionUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		limitedReader := io.LimitReader(resp.Body, 1024)
		bodyBytes, _ := io.ReadAll(limitedReader)
		return nil, fmt.Errorf("%w: status %d: %s", ErrIndirectionRejected, resp.StatusCode, string(bodyBytes))
	}

	var indResp indirectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&indResp); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrIndirectionRejected, err)
	}

	return &Result{
		Model:   indResp.ModelUsed,
		Content: indResp.Content,
		Usage: Usage{
			PromptTokens:     indResp.Usage.PromptTokens,
			CompletionTokens: indResp.Usage.CompletionTokens,
			TotalTokens:      indResp.Usage.TotalTokens,
		},
		FinishReason:   "stop",
		ResponseTimeMS: indResp.Performance.ResponseTimeMS,
	}, nil
}
