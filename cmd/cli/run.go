package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/prompteval-hq/prompteval/internal/config"
	"github.com/prompteval-hq/prompteval/internal/llm"
	"github.com/prompteval-hq/prompteval/internal/runner"
	"github.com/prompteval-hq/prompteval/internal/suite"
)

func runCmd() *cobra.Command {
	var (
		concurrency int
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Run a prompt test suite",
		Long:  `Load a YAML suite, run every case against every target, and print the verdicts.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			s, err := suite.Load(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			router, err := llm.NewRouter(cfg)
			if err != nil {
				return fmt.Errorf("failed to create completion router: %w", err)
			}
			status := router.RefreshHealth(ctx)

			fmt.Printf("Suite: %s\n", s.Name)
			fmt.Printf("Indirection: %s\n", status)
			fmt.Printf("Combinations: %d cases x %d targets\n\n", len(s.Cases), len(s.Targets))

			run := runner.New(router, runner.Config{
				Threshold:   cfg.LLM.PassThreshold,
				Concurrency: concurrency,
			})

			summary, err := run.Run(ctx, s)
			if err != nil {
				return fmt.Errorf("suite run failed: %w", err)
			}

			for _, result := range summary.Results {
				mark := "PASS"
				if !result.Passed {
					mark = "FAIL"
				}
				fmt.Printf("[%s] %s (%s/%s) score=%.2f %dms\n",
					mark, result.CaseName, result.Provider, result.Model,
					result.Score, result.ExecutionTimeMS)
				if result.Error != "" {
					fmt.Printf("       error: %s\n", result.Error)
				}
				if verbose && result.Response != "" {
					fmt.Printf("       response: %s\n", result.Response)
				}
			}

			fmt.Printf("\n%d/%d passed in %dms\n", summary.Passed, summary.Total, summary.DurationMS)

			if summary.Failed > 0 {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Maximum in-flight completions")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print provider responses")

	return cmd
}
