package score

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_ExactMatch(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"identical", "Paris", "Paris"},
		{"case_insensitive", "Paris", "paris"},
		{"surrounding_whitespace", "  Paris ", "Paris"},
		{"both_normalized", " PARIS\n", "\tparis "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, 1.0, Score(Text(tt.expected), tt.actual))
		})
	}
}

func TestScore_NumericEquivalence(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     float64
	}{
		{"same_integer", "42", "42", 1.0},
		{"decimal_equivalent", "42", "42.0", 1.0},
		{"decimal_expected", "42.0", "42", 1.0},
		{"different_numbers", "42", "43", 0.0},
		{"transposed_digits", "42", "24", 0.0},
		{"signed_match", "-7", "-7.0", 1.0},
		{"leading_number_with_unit", "42 apples", "42.0 apples", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(Text(tt.expected), tt.actual))
		})
	}
}

func TestScore_Containment(t *testing.T) {
	got := Score(Text("Paris"), "The capital of France is Paris, of course.")
	assert.Equal(t, 0.9, got)
}

func TestScore_NumericExpectedNonNumericActual(t *testing.T) {
	// Numeric short-circuit only fires when both sides lead with a number;
	// otherwise containment still applies
	got := Score(Text("42"), "the answer is 42")
	assert.Equal(t, 0.9, got)
}

func TestScore_EditSimilarity(t *testing.T) {
	// "kitten" vs "sitting": distance 3, longer length 7
	got := Score(Text("kitten"), "sitting")
	assert.InDelta(t, 1.0-3.0/7.0, got, 1e-9)
}

func TestScore_Bounds(t *testing.T) {
	cases := []struct {
		name     string
		expected Expected
		actual   string
	}{
		{"disjoint_text", Text("alpha"), "zzzzzzzzzz"},
		{"empty_actual", Text("expected"), ""},
		{"unicode", Text("héllo wörld"), "hello world"},
		{"long_actual", Text("x"), "completely unrelated very long response text"},
		{"structured", Structured{"city": "Paris"}, "nothing relevant"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.expected, tt.actual)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestScore_Idempotent(t *testing.T) {
	expected := Text("the quick brown fox")
	actual := "a quick brown fox jumps"

	first := Score(expected, actual)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(expected, actual))
	}
}

func TestScore_NilExpectation(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, "anything"))
}

func TestScore_Structured_FullCoverage(t *testing.T) {
	expected := Structured{"city": "Paris", "country": "France"}
	got := Score(expected, "The city Paris is located in the country France.")
	assert.Equal(t, 1.0, got)
}

func TestScore_Structured_PartialCoverage(t *testing.T) {
	expected := Structured{"city": "Paris", "country": "France"}
	got := Score(expected, "Paris is a city.")
	assert.Greater(t, got, 0.0)
	assert.Less(t, got, 1.0)
}

func TestScore_Structured_NoCoverage(t *testing.T) {
	expected := Structured{"city": "Paris"}
	got := Score(expected, "completely unrelated")
	assert.Equal(t, 0.0, got)
}

func TestParseExpected(t *testing.T) {
	t.Run("string", func(t *testing.T) {
		got := ParseExpected(json.RawMessage(`"Paris"`))
		assert.Equal(t, Text("Paris"), got)
	})

	t.Run("object", func(t *testing.T) {
		got := ParseExpected(json.RawMessage(`{"city": "Paris"}`))
		assert.Equal(t, Structured{"city": "Paris"}, got)
	})

	t.Run("array_is_nil", func(t *testing.T) {
		assert.Nil(t, ParseExpected(json.RawMessage(`["Paris"]`)))
	})

	t.Run("number_is_nil", func(t *testing.T) {
		assert.Nil(t, ParseExpected(json.RawMessage(`42`)))
	})

	t.Run("empty_is_nil", func(t *testing.T) {
		assert.Nil(t, ParseExpected(nil))
		assert.Nil(t, ParseExpected(json.RawMessage(``)))
	})

	t.Run("invalid_json_is_nil", func(t *testing.T) {
		assert.Nil(t, ParseExpected(json.RawMessage(`{"city":`)))
		assert.Nil(t, ParseExpected(json.RawMessage(`"unterminated`)))
	})
}
