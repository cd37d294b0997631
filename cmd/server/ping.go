package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/langchou/chargebook/internal/api/ampeco"
	"github.com/langchou/chargebook/internal/config"
)

// newPingCmd checks the configured Ampeco URL and token with one request.
func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Verify Ampeco connectivity and credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			client := ampeco.NewClient(cfg.AmpecoAPIURL, cfg.AmpecoAPIToken, cfg.ProviderTimeout)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.ProviderTimeout)
			defer cancel()

			start := time.Now()
			if err := client.Ping(ctx); err != nil {
				if status := ampeco.StatusOf(err); status != 0 {
					return fmt.Errorf("ampeco responded %d: %w", status, err)
				}
				return fmt.Errorf("ampeco unreachable: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%s)\n", cfg.AmpecoAPIURL, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
