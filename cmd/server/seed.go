package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transactions-service/internal/config"
	"github.com/sheikh-saqib/transactions-service/internal/seed"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the starting risk rules and demo accounts into the database",
		Long: `Upserts the PEN and USD risk rules and creates the demo accounts
001-0001, 001-0002 and 001-0003 when they do not exist yet.
Needs DATABASE_URL; the in-memory stores are seeded by serve itself.`,
		Args: cobra.NoArgs,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	if cfg.DatabaseURL == "" {
		slog.Warn("nothing to seed: DATABASE_URL is not set")
		return nil
	}

	ctx := cmd.Context()
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	return seed.Run(ctx, st.rules, st.accounts)
}
