package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache provides caching for completion results
type Cache interface {
	// Get retrieves a cached result
	Get(ctx context.Context, key string) (*Result, bool)
	// Set stores a result in cache
	Set(ctx context.Context, key string, result *Result, ttl time.Duration) error
	// Stats returns cache statistics
	Stats() CacheStats
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// cacheKey derives a stable key from the request fields that affect the
// completion. The rendered prompt is hashed, never stored in the key.
func cacheKey(req *Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%v|%d|%s", req.Provider, req.Model, req.Temperature, req.MaxTokens, req.Prompt)
	return hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-memory cache for completion results
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
	stats   CacheStats
}

type cacheEntry struct {
	result    *Result
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache. Zero maxSize and ttl
// select the defaults (1000 entries, 1 hour).
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	cache := &MemoryCache{
		entries: make(map[string]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}

	go cache.cleanup()

	return cache
}

// Get retrieves a cached result
func (c *MemoryCache) Get(ctx context.Context, key string) (*Result, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.stats.Misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()

	keyPreview := key
	if len(key) > 16 {
		keyPreview = key[:16] + "..."
	}
	log.Debug().Str("key", keyPreview).Msg("completion cache hit")
	return entry.result, true
}

// Set stores a result in cache. Zero ttl selects the cache default.
func (c *MemoryCache) Set(ctx context.Context, key string, result *Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict an arbitrary entry when full
	if len(c.entries) >= c.maxSize {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}

	c.entries[key] = &cacheEntry{
		result:    result,
		expiresAt: time.Now().Add(ttl),
	}
	c.stats.Size = int64(len(c.entries))

	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.Size = int64(len(c.entries))
	return stats
}

// cleanup periodically removes expired entries
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.stats.Size = int64(len(c.entries))
		c.mu.Unlock()
	}
}
