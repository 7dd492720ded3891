package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider identifies a completion backend
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLocal     Provider = "local"
	ProviderMock      Provider = "mock"
)

// Providers lists every supported provider
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderLocal, ProviderMock}

// ParseProvider validates a provider name. Unknown names are a caller bug
// and fail fast rather than being silently defaulted.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderOpenAI, ProviderAnthropic, ProviderLocal, ProviderMock:
		return Provider(s), nil
	}
	return "", fmt.Errorf("unsupported provider: %q", s)
}

// Default request parameters
const (
	DefaultTemperature  = 0.7
	DefaultMaxTokens    = 1000
	DefaultTimeout      = 30 * time.Second
	DefaultLocalTimeout = 60 * time.Second
)

// Request represents a completion request.
//
// Exactly one of Variables or Input is used for template substitution:
// Variables fills named {placeholder} slots, Input fills the conventional
// {input} slot. Zero values for Temperature, MaxTokens and Timeout mean
// the provider defaults above.
type Request struct {
	Prompt      string
	Variables   map[string]string
	Input       string
	Provider    Provider
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	// APIKey is an explicit per-call credential. It takes precedence over
	// the process environment credential configured at construction.
	APIKey string

	// DirectOnly forces a direct provider call even when the indirection
	// service is available.
	DirectOnly bool
}

// normalized returns a copy of the request with defaults applied and the
// prompt already rendered. Adapters receive only normalized requests.
func (r *Request) normalized(rendered string) *Request {
	req := *r
	req.Prompt = rendered
	req.Variables = nil
	req.Input = ""
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if req.Timeout <= 0 {
		if req.Provider == ProviderLocal {
			req.Timeout = DefaultLocalTimeout
		} else {
			req.Timeout = DefaultTimeout
		}
	}
	return &req
}

// Usage holds token accounting for one completion
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result represents a completed request
type Result struct {
	Provider       Provider `json:"provider"`
	Model          string   `json:"model"`
	Content        string   `json:"content"`
	Usage          Usage    `json:"usage"`
	FinishReason   string   `json:"finish_reason"`
	ResponseTimeMS int64    `json:"response_time_ms"`
	Cached         bool     `json:"cached,omitempty"`
}

// Error is the failure variant of a completion. The router converts every
// adapter and indirection failure into this type; callers never see raw
// transport errors.
type Error struct {
	Provider       Provider `json:"provider"`
	Model          string   `json:"model"`
	Message        string   `json:"error"`
	ResponseTimeMS int64    `json:"response_time_ms"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s completion failed: %s", e.Provider, e.Message)
}

// Client is the interface for provider adapters
type Client interface {
	Complete(ctx context.Context, req *Request) (*Result, error)
	Name() Provider
	Available() bool
}

// estimateTokens approximates token usage for backends that do not report
// it (local, mock): ceil(len/4).
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}
