package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prompteval-hq/prompteval/internal/score"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <expected> <actual>",
		Short: "Score a response against an expectation",
		Long: `Compare an actual response to an expectation and print the similarity
score. The expectation may be plain text or a JSON object whose keywords
are checked for coverage.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expected := score.ParseExpected(json.RawMessage(args[0]))
			if expected == nil {
				// Not JSON, treat the argument as plain text
				expected = score.Text(args[0])
			}

			fmt.Printf("%.4f\n", score.Score(expected, args[1]))
			return nil
		},
	}

	return cmd
}
