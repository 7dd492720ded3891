package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prompteval-hq/prompteval/internal/config"
	"github.com/prompteval-hq/prompteval/internal/llm"
)

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Show provider and indirection availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			router, err := llm.NewRouter(cfg)
			if err != nil {
				return fmt.Errorf("failed to create completion router: %w", err)
			}

			status := router.RefreshHealth(ctx)
			fmt.Printf("Indirection: %s\n\n", status)

			availability := router.ProviderAvailability()
			for _, provider := range llm.Providers {
				state := "unavailable"
				if availability[provider] {
					state = "available"
				}
				fmt.Printf("%-10s %s\n", provider, state)
			}

			return nil
		},
	}

	return cmd
}
