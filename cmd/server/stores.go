package main

import (
	"context"
	"log/slog"

	"github.com/sheikh-saqib/transactions-service/internal/config"
	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/storage/memory"
	"github.com/sheikh-saqib/transactions-service/internal/storage/postgres"
)

type stores struct {
	accounts       interfaces.AccountStore
	transactions   interfaces.TransactionStore
	rules          interfaces.RiskRuleStore
	reconciliation interfaces.ReconciliationQueue
	close          func() error
}

// openStores uses Postgres when DATABASE_URL is set and memory otherwise
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			accounts:       memory.NewMemoryAccountStore(),
			transactions:   memory.NewMemoryTransactionStore(),
			rules:          memory.NewMemoryRiskRuleStore(),
			reconciliation: memory.NewMemoryReconciliationQueue(),
			close:          func() error { return nil },
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("connected to postgres")

	return &stores{
		accounts:       postgres.NewPostgresAccountStore(db),
		transactions:   postgres.NewPostgresTransactionStore(db),
		rules:          postgres.NewPostgresRiskRuleStore(db),
		reconciliation: postgres.NewPostgresReconciliationQueue(db),
		close:          db.Close,
	}, nil
}
