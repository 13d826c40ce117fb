package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

// A transaction is two writes: the account balance, then the transaction
// record. When the second write fails the first one is undone here. If even
// the undo fails, or it would take the balance below zero, the correction
// goes to the reconciliation queue for the Reconciler to retry.

// compensate reverses a movement of amount on accountID whose transaction
// record was lost because of cause.
func (l *Ledger) compensate(ctx context.Context, accountID string, txType models.TransactionType, amount decimal.Decimal, cause error) {
	reversal := txType.Inverse()

	err := l.reverse(ctx, accountID, reversal, amount)
	if err == nil {
		slog.WarnContext(ctx, "balance write compensated",
			"account_id", accountID, "reversal", reversal, "amount", amount.String())
		return
	}

	slog.ErrorContext(ctx, "compensation failed, queueing for reconciliation",
		"account_id", accountID, "reversal", reversal, "amount", amount.String(), "error", err)

	entry := models.ReconciliationEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Type:      reversal,
		Amount:    amount,
		Reason:    cause.Error(),
		CreatedAt: l.now().UTC(),
	}
	if err := l.reconciliation.Enqueue(ctx, entry); err != nil {
		// Nothing else can remember this correction now
		slog.ErrorContext(ctx, "reconciliation entry lost",
			"account_id", accountID, "reversal", reversal, "amount", amount.String(), "error", err)
	}
}

// reverse applies a correcting movement to the current state of the account
func (l *Ledger) reverse(ctx context.Context, accountID string, txType models.TransactionType, amount decimal.Decimal) error {
	account, err := l.accounts.FindByID(ctx, accountID)
	if err != nil {
		return newError(KindStoreUnavailable, "load account %s: %w", accountID, err)
	}
	_, err = l.applyMovement(ctx, *account, txType, amount)
	return err
}
