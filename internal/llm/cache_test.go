package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey_Stable(t *testing.T) {
	req := &Request{
		Prompt:      "hello",
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   100,
	}

	assert.Equal(t, cacheKey(req), cacheKey(req))
}

func TestCacheKey_VariesWithRequest(t *testing.T) {
	base := &Request{
		Prompt:      "hello",
		Provider:    ProviderOpenAI,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   100,
	}

	variants := []*Request{
		{Prompt: "goodbye", Provider: ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 100},
		{Prompt: "hello", Provider: ProviderAnthropic, Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 100},
		{Prompt: "hello", Provider: ProviderOpenAI, Model: "gpt-4o", Temperature: 0.7, MaxTokens: 100},
		{Prompt: "hello", Provider: ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.2, MaxTokens: 100},
		{Prompt: "hello", Provider: ProviderOpenAI, Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 200},
	}

	baseKey := cacheKey(base)
	for i, variant := range variants {
		assert.NotEqual(t, baseKey, cacheKey(variant), "variant %d", i)
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	cache := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	result := &Result{Provider: ProviderMock, Content: "cached"}
	require.NoError(t, cache.Set(ctx, "key1", result, 0))

	got, ok := cache.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, "cached", got.Content)

	_, ok = cache.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expiry(t *testing.T) {
	cache := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "key1", &Result{Content: "cached"}, 10*time.Millisecond))

	_, ok := cache.Get(ctx, "key1")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = cache.Get(ctx, "key1")
	assert.False(t, ok)
}

func TestMemoryCache_EvictsWhenFull(t *testing.T) {
	cache := NewMemoryCache(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "a", &Result{}, 0))
	require.NoError(t, cache.Set(ctx, "b", &Result{}, 0))
	require.NoError(t, cache.Set(ctx, "c", &Result{}, 0))

	assert.LessOrEqual(t, cache.Stats().Size, int64(2))
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "key1", &Result{}, 0)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "missing")

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Size)
}
