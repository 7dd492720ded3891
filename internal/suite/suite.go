// Package suite loads prompt test suites from YAML files and git
// repositories.
package suite

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/score"
)

// Case is a single prompt test case
type Case struct {
	Name      string            `yaml:"name" json:"name"`
	Prompt    string            `yaml:"prompt" json:"prompt"`
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Input     string            `yaml:"input,omitempty" json:"input,omitempty"`
	Expected  any               `yaml:"expected,omitempty" json:"expected,omitempty"`
	Threshold float64           `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// ExpectedValue maps the raw YAML expectation onto the scorer's tagged
// union. Strings become Text, mappings become Structured, anything else
// is nil and scores 0.0.
func (c *Case) ExpectedValue() score.Expected {
	switch v := c.Expected.(type) {
	case string:
		return score.Text(v)
	case map[string]any:
		return score.Structured(v)
	default:
		return nil
	}
}

// Target is one provider configuration the suite runs against
type Target struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model,omitempty" json:"model,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	DirectOnly  bool    `yaml:"direct_only,omitempty" json:"direct_only,omitempty"`
}

// Suite is a named set of test cases run against one or more targets
type Suite struct {
	Name      string   `yaml:"name" json:"name"`
	Threshold float64  `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	Targets   []Target `yaml:"targets" json:"targets"`
	Cases     []Case   `yaml:"cases" json:"cases"`
}

// Load reads and validates a suite from a YAML file
func Load(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML suite
func Parse(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the suite for structural problems before any provider
// call is made
func (s *Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite name is required")
	}
	if len(s.Targets) == 0 {
		return fmt.Errorf("suite %q has no targets", s.Name)
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("suite %q has no cases", s.Name)
	}
	if s.Threshold < 0 || s.Threshold > 1 {
		return fmt.Errorf("suite %q threshold must be in [0,1]", s.Name)
	}

	for i, target := range s.Targets {
		if _, err := llm.ParseProvider(target.Provider); err != nil {
			return fmt.Errorf("suite %q target %d: %w", s.Name, i, err)
		}
	}

	for i, c := range s.Cases {
		if c.Name == "" {
			return fmt.Errorf("suite %q case %d has no name", s.Name, i)
		}
		if c.Prompt == "" {
			return fmt.Errorf("suite %q case %q has no prompt", s.Name, c.Name)
		}
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("suite %q case %q threshold must be in [0,1]", s.Name, c.Name)
		}
	}

	return nil
}
