// Package runner executes prompt test suites: every case is run against
// every configured target, completions are scored against expectations,
// and verdicts are aggregated into a summary. One failing combination
// never aborts its siblings.
package runner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/score"
	"github.com/prompteval-hq/prompteval/internal/suite"
)

// DefaultThreshold is the pass threshold applied when neither the suite
// nor the case sets one
const DefaultThreshold = 0.7

// Completer is the completion interface the runner drives, satisfied by
// *llm.Router
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Result, error)
}

// Result is the verdict for one case/target combination
type Result struct {
	CaseName        string       `json:"case_name"`
	Provider        llm.Provider `json:"provider"`
	Model           string       `json:"model"`
	Passed          bool         `json:"passed"`
	Score           float64      `json:"score"`
	Response        string       `json:"response,omitempty"`
	Error           string       `json:"error,omitempty"`
	ExecutionTimeMS int64        `json:"execution_time_ms"`
	Usage           llm.Usage    `json:"usage"`
}

// Summary aggregates a suite run
type Summary struct {
	Suite      string   `json:"suite"`
	Total      int      `json:"total"`
	Passed     int      `json:"passed"`
	Failed     int      `json:"failed"`
	DurationMS int64    `json:"duration_ms"`
	Results    []Result `json:"results"`
}

// Config configures a Runner
type Config struct {
	// Threshold overrides DefaultThreshold when in (0,1]
	Threshold float64
	// Concurrency bounds in-flight completions; <=1 runs sequentially.
	// The routing core imposes no limit of its own, so throttling
	// belongs here.
	Concurrency int
}

// Runner executes suites against a completion router
type Runner struct {
	completer   Completer
	threshold   float64
	concurrency int
}

// New creates a runner
func New(completer Completer, cfg Config) *Runner {
	threshold := cfg.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		completer:   completer,
		threshold:   threshold,
		concurrency: concurrency,
	}
}

// Run executes every case of the suite against every target. The error
// return covers context cancellation only; individual failures are
// reported inside the summary.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (*Summary, error) {
	start := time.Now()

	type combination struct {
		c      suite.Case
		target suite.Target
	}

	var combinations []combination
	for _, c := range s.Cases {
		for _, target := range s.Targets {
			combinations = append(combinations, combination{c: c, target: target})
		}
	}

	results := make([]Result, len(combinations))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, combo := range combinations {
		wg.Add(1)
		go func(i int, combo combination) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = r.runOne(ctx, s, combo.c, combo.target)
		}(i, combo)
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	summary := &Summary{
		Suite:      s.Name,
		Total:      len(results),
		DurationMS: time.Since(start).Milliseconds(),
		Results:    results,
	}
	for _, result := range results {
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	log.Info().
		Str("suite", s.Name).
		Int("total", summary.Total).
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Int64("duration_ms", summary.DurationMS).
		Msg("suite run complete")

	return summary, nil
}

// runOne executes a single case/target combination
func (r *Runner) runOne(ctx context.Context, s *suite.Suite, c suite.Case, target suite.Target) Result {
	provider, _ := llm.ParseProvider(target.Provider) // validated at suite load

	start := time.Now()
	completion, err := r.completer.Complete(ctx, &llm.Request{
		Prompt:      c.Prompt,
		Variables:   c.Variables,
		Input:       c.Input,
		Provider:    provider,
		Model:       target.Model,
		Temperature: target.Temperature,
		MaxTokens:   target.MaxTokens,
		DirectOnly:  target.DirectOnly,
	})

	result := Result{
		CaseName: c.Name,
		Provider: provider,
		Model:    target.Model,
	}

	if err != nil {
		result.ExecutionTimeMS = time.Since(start).Milliseconds()
		var completionErr *llm.Error
		if errors.As(err, &completionErr) {
			result.Model = completionErr.Model
			result.Error = completionErr.Message
			result.ExecutionTimeMS = completionErr.ResponseTimeMS
		} else {
			result.Error = err.Error()
		}
		return result
	}

	result.Model = completion.Model
	result.Response = completion.Content
	result.Usage = completion.Usage
	result.ExecutionTimeMS = completion.ResponseTimeMS

	expected := c.ExpectedValue()
	if expected == nil {
		// No expectation: a successful completion is the verdict
		result.Passed = true
		result.Score = 1.0
		return result
	}

	result.Score = score.Score(expected, completion.Content)
	result.Passed = result.Score >= r.thresholdFor(s, c)

	return result
}

// thresholdFor resolves the pass threshold: case over suite over runner
// default
func (r *Runner) thresholdFor(s *suite.Suite, c suite.Case) float64 {
	if c.Threshold > 0 {
		return c.Threshold
	}
	if s.Threshold > 0 {
		return s.Threshold
	}
	return r.threshold
}
