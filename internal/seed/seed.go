// Package seed loads the starting risk rules and demo accounts.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

func Rules() []models.RiskRule {
	return []models.RiskRule{
		{Currency: "PEN", MaxDebitPerTx: decimal.NewFromInt(1500)},
		{Currency: "USD", MaxDebitPerTx: decimal.NewFromInt(500)},
	}
}

func Accounts() []models.Account {
	return []models.Account{
		{Number: "001-0001", HolderName: "Ana Peru", Currency: "PEN", Balance: decimal.NewFromInt(2000)},
		{Number: "001-0002", HolderName: "Luis Acuña", Currency: "PEN", Balance: decimal.NewFromInt(800)},
		{Number: "001-0003", HolderName: "Carlos Dollar", Currency: "USD", Balance: decimal.NewFromInt(1000)},
	}
}

// Run upserts the rules and creates the accounts that do not exist yet.
// Existing accounts keep their balance, so running it twice is harmless.
func Run(ctx context.Context, rules interfaces.RiskRuleStore, accounts interfaces.AccountStore) error {
	slog.InfoContext(ctx, "seeding initial data")

	for _, rule := range Rules() {
		if err := rules.Save(ctx, rule); err != nil {
			return fmt.Errorf("seed risk rule %s: %w", rule.Currency, err)
		}
	}
	slog.InfoContext(ctx, "risk rules seeded", "count", len(Rules()))

	for _, account := range Accounts() {
		created, err := accounts.Create(ctx, account)
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			slog.InfoContext(ctx, "account already present", "number", account.Number)
		case err != nil:
			return fmt.Errorf("seed account %s: %w", account.Number, err)
		default:
			slog.InfoContext(ctx, "account seeded", "number", created.Number, "id", created.ID)
		}
	}
	return nil
}
