package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prompteval-hq/prompteval/internal/suite"
)

func syncCmd() *cobra.Command {
	var branch string

	cmd := &cobra.Command{
		Use:   "sync <repo-url>",
		Short: "Import suites from a git repository",
		Long:  `Clone a repository and list every valid YAML suite it contains.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			suites, err := suite.ImportFromGit(context.Background(), args[0], branch)
			if err != nil {
				return err
			}

			fmt.Printf("Imported %d suites:\n", len(suites))
			for _, s := range suites {
				fmt.Printf("  %s (%d cases, %d targets)\n", s.Name, len(s.Cases), len(s.Targets))
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", "", "Branch to clone (default branch if empty)")

	return cmd
}
