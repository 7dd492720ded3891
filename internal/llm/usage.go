package llm

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UsageRecord represents a single completion usage event
type UsageRecord struct {
	ID               uuid.UUID `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Provider         Provider  `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cost             float64   `json:"cost"` // Estimated cost in USD
	DurationMS       int64     `json:"duration_ms"`
}

// UsageStats provides aggregate usage statistics
type UsageStats struct {
	TotalRequests    int64   `json:"total_requests"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost_usd"`
}

const defaultMaxUsageRecords = 1000

// UsageTracker records per-call usage in a rolling window and keeps
// running totals
type UsageTracker struct {
	mu sync.RWMutex

	stats UsageStats

	records     []UsageRecord
	maxRecords  int
	recordIndex int

	costPer1K map[Provider]map[string]float64
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		records:    make([]UsageRecord, defaultMaxUsageRecords),
		maxRecords: defaultMaxUsageRecords,
		costPer1K:  defaultCostPer1K(),
	}
}

// defaultCostPer1K returns cost estimates per 1K tokens. These are rough
// blended input+output figures and should track published pricing.
func defaultCostPer1K() map[Provider]map[string]float64 {
	return map[Provider]map[string]float64{
		ProviderLocal: {
			"default": 0.0, // Local models are free
		},
		ProviderMock: {
			"default": 0.0,
		},
		ProviderAnthropic: {
			"claude-3-haiku-20240307":    0.00025 + 0.00125,
			"claude-3-5-sonnet-20241022": 0.003 + 0.015,
			"default":                    0.005,
		},
		ProviderOpenAI: {
			"gpt-4o":      0.0025 + 0.01,
			"gpt-4o-mini": 0.00015 + 0.0006,
			"default":     0.005,
		},
	}
}

// Record records a usage event
func (t *UsageTracker) Record(record UsageRecord) {
	record.ID = uuid.New()
	record.Timestamp = time.Now()
	record.TotalTokens = record.PromptTokens + record.CompletionTokens
	record.Cost = t.estimateCost(record)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalRequests++
	t.stats.PromptTokens += int64(record.PromptTokens)
	t.stats.CompletionTokens += int64(record.CompletionTokens)
	t.stats.TotalTokens += int64(record.TotalTokens)
	t.stats.EstimatedCost += record.Cost

	t.records[t.recordIndex] = record
	t.recordIndex = (t.recordIndex + 1) % t.maxRecords

	log.Debug().
		Str("provider", string(record.Provider)).
		Str("model", record.Model).
		Int("prompt_tokens", record.PromptTokens).
		Int("completion_tokens", record.CompletionTokens).
		Float64("cost", record.Cost).
		Msg("recorded completion usage")
}

// Stats returns aggregate usage statistics
func (t *UsageTracker) Stats() UsageStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// RecentRecords returns the most recent usage records, newest first
func (t *UsageTracker) RecentRecords(limit int) []UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit > t.maxRecords {
		limit = t.maxRecords
	}

	result := make([]UsageRecord, 0, limit)

	idx := (t.recordIndex - 1 + t.maxRecords) % t.maxRecords
	for i := 0; i < limit && i < t.maxRecords; i++ {
		if t.records[idx].ID != uuid.Nil {
			result = append(result, t.records[idx])
		}
		idx = (idx - 1 + t.maxRecords) % t.maxRecords
	}

	return result
}

// estimateCost estimates the cost of a usage record
func (t *UsageTracker) estimateCost(record UsageRecord) float64 {
	providerCosts, ok := t.costPer1K[record.Provider]
	if !ok {
		return 0
	}

	costPer1K, ok := providerCosts[record.Model]
	if !ok {
		costPer1K = providerCosts["default"]
	}

	return float64(record.TotalTokens) / 1000.0 * costPer1K
}
