package interfaces

import (
	"context"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

// AccountStore looks accounts up and saves them under optimistic concurrency.
// Lookups that match nothing return storage.ErrNotFound.
type AccountStore interface {
	FindByNumber(ctx context.Context, number string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	Create(ctx context.Context, account models.Account) (models.Account, error)
	// Save writes account only if the stored version still equals
	// account.Version, and returns the stored copy with the bumped version.
	Save(ctx context.Context, account models.Account) (models.Account, error)
}

// TransactionStore is append-only.
type TransactionStore interface {
	Save(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	FindByAccountOrderedByTimeDesc(ctx context.Context, accountID string) ([]models.Transaction, error)
}

type RiskRuleStore interface {
	// FindByCurrency returns storage.ErrNotFound when no rule exists.
	FindByCurrency(ctx context.Context, currency string) (models.RiskRule, error)
	Save(ctx context.Context, rule models.RiskRule) error
}

// ReconciliationQueue keeps balance corrections that still have to be applied.
type ReconciliationQueue interface {
	Enqueue(ctx context.Context, entry models.ReconciliationEntry) error
	Pending(ctx context.Context, limit int) ([]models.ReconciliationEntry, error)
	Resolve(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) error
}
