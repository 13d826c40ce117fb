package risk

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

// DefaultDebitCeiling applies to currencies without a rule.
var DefaultDebitCeiling = decimal.NewFromInt(1000)

// LocalEvaluator decides from the locally stored per-currency rules. It never
// talks to the remote risk service.
type LocalEvaluator struct {
	rules   interfaces.RiskRuleStore
	ceiling decimal.Decimal
}

// NewLocalEvaluator uses ceiling for currencies without a rule. A zero or
// negative ceiling is replaced with DefaultDebitCeiling.
func NewLocalEvaluator(rules interfaces.RiskRuleStore, ceiling decimal.Decimal) *LocalEvaluator {
	if !ceiling.IsPositive() {
		ceiling = DefaultDebitCeiling
	}
	return &LocalEvaluator{rules: rules, ceiling: ceiling}
}

// IsAllowedLegacy allows every CREDIT and allows a DEBIT up to the currency's
// max debit. A missing rule means the conservative ceiling, not "unlimited".
// Lookup errors deny.
func (e *LocalEvaluator) IsAllowedLegacy(ctx context.Context, currency string, txType models.TransactionType, amount decimal.Decimal) bool {
	if txType != models.Debit {
		return true
	}

	limit := e.ceiling
	rule, err := e.rules.FindByCurrency(ctx, currency)
	switch {
	case err == nil:
		limit = rule.MaxDebitPerTx
	case errors.Is(err, storage.ErrNotFound):
		slog.DebugContext(ctx, "no risk rule for currency, using default ceiling",
			"currency", currency, "ceiling", e.ceiling.String())
	default:
		slog.ErrorContext(ctx, "local risk rule lookup failed", "currency", currency, "error", err)
		return false
	}

	allowed := amount.LessThanOrEqual(limit)
	slog.DebugContext(ctx, "local debit check",
		"allowed", allowed, "amount", amount.String(), "max", limit.String())
	return allowed
}
