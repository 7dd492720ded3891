package llm

import (
	"context"
	"fmt"
)

const mockModel = "mock-v1"

// MockClient implements the Client interface without any network call.
// It returns a deterministic templated response, which makes it suitable
// for offline development and test-harness determinism.
type MockClient struct {
	// FixedResponse, when set, is returned for every request instead of
	// the templated echo.
	FixedResponse string
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Name() Provider {
	return ProviderMock
}

func (c *MockClient) Available() bool {
	return true
}

func (c *MockClient) Complete(ctx context.Context, req *Request) (*Result, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	content := c.FixedResponse
	if content == "" {
		content = fmt.Sprintf("mock response for: %s", req.Prompt)
	}

	promptTokens := estimateTokens(req.Prompt)
	completionTokens := estimateTokens(content)

	return &Result{
		Provider: ProviderMock,
		Model:    mockModel,
		Content:  content,
		Usage: Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
		FinishReason: "stop",
	}, nil
}
