// Package score compares actual completion text against expected values,
// producing a similarity score in [0,1]. Scoring is pure: no I/O, no side
// effects, deterministic for given inputs. Pass/fail thresholds are the
// caller's policy, not part of this package's contract.
package score

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Expected is a tagged union over the supported expectation kinds. A nil
// or unknown expectation scores 0.0: an input that cannot be confidently
// evaluated must never abort a test run.
type Expected interface {
	expectedValue()
}

// Text expects the response to match a string, exactly or approximately
type Text string

// Structured expects the response to mention the terms of a structured
// object. This is deliberately looser than structural diffing.
type Structured map[string]any

func (Text) expectedValue()       {}
func (Structured) expectedValue() {}

// ParseExpected maps a raw JSON expectation onto the tagged union:
// JSON strings become Text, JSON objects become Structured, anything
// else (including invalid JSON) becomes nil.
func ParseExpected(raw json.RawMessage) Expected {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		return Text(s)
	case '{':
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		return Structured(obj)
	}

	return nil
}

// leadingNumber matches an optional sign, digits and an optional decimal
// part at the start of a normalized string.
var leadingNumber = regexp.MustCompile(`^[+-]?\d+(\.\d+)?`)

// wordTokens extracts word-character tokens for keyword coverage
var wordTokens = regexp.MustCompile(`\w+`)

// Score compares an expected value against actual response text and
// returns a similarity score in [0,1].
func Score(expected Expected, actual string) float64 {
	switch e := expected.(type) {
	case Text:
		return scoreText(string(e), actual)
	case Structured:
		return scoreStructured(e, actual)
	default:
		return 0.0
	}
}

func scoreText(expected, actual string) float64 {
	expectedNorm := strings.ToLower(strings.TrimSpace(expected))
	actualNorm := strings.ToLower(strings.TrimSpace(actual))

	if expectedNorm == actualNorm {
		return 1.0
	}

	// Numeric answers short-circuit string similarity: "42" and "42.0"
	// must score 1.0, and "42" vs "24" must not score high by accident.
	if expectedNum, ok := leadingNumeric(expectedNorm); ok {
		if actualNum, ok := leadingNumeric(actualNorm); ok {
			if expectedNum == actualNum {
				return 1.0
			}
			return 0.0
		}
	}

	// Right answer plus extra commentary
	if expectedNorm != "" && strings.Contains(actualNorm, expectedNorm) {
		return 0.9
	}

	return editSimilarity(expectedNorm, actualNorm)
}

// leadingNumeric parses the leading numeric token of a normalized string
func leadingNumeric(s string) (float64, bool) {
	token := leadingNumber.FindString(s)
	if token == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// editSimilarity returns 1 − lev(longer, shorter)/len(longer), clamped
// into [0,1].
func editSimilarity(a, b string) float64 {
	longer, shorter := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 1.0
	}

	similarity := 1.0 - float64(levenshtein(longer, shorter))/float64(len(longer))
	if similarity < 0 {
		return 0.0
	}
	if similarity > 1 {
		return 1.0
	}
	return similarity
}

// levenshtein computes the edit distance between two rune slices with a
// two-row dynamic program.
func levenshtein(a, b []rune) int {
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// scoreStructured computes keyword coverage: the fraction of the expected
// object's tokens that also appear in the actual text.
func scoreStructured(expected Structured, actual string) float64 {
	raw, err := json.Marshal(expected)
	if err != nil {
		return 0.0
	}

	expectedTokens := wordTokens.FindAllString(strings.ToLower(string(raw)), -1)
	if len(expectedTokens) == 0 {
		return 0.0
	}

	actualSet := make(map[string]struct{})
	for _, token := range wordTokens.FindAllString(strings.ToLower(actual), -1) {
		actualSet[token] = struct{}{}
	}

	found := 0
	for _, token := range expectedTokens {
		if _, ok := actualSet[token]; ok {
			found++
		}
	}

	return float64(found) / float64(len(expectedTokens))
}
