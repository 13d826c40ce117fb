package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

const (
	// DefaultSaveAttempts bounds the compare-and-swap loop on one account
	DefaultSaveAttempts = 10
	defaultSaveBackoff  = 5 * time.Millisecond
)

// RiskDecider is the risk check in front of every balance movement.
// *risk.Client implements it.
type RiskDecider interface {
	IsAllowed(ctx context.Context, currency string, txType models.TransactionType, amount decimal.Decimal) (bool, error)
}

// Publisher receives every committed transaction. *events.Bus implements it.
type Publisher interface {
	Publish(tx models.Transaction) error
}

// Ledger is the transaction pipeline: it checks a movement with the risk
// service, applies it to the account balance and records it.
//
// There are no per-account locks. Every balance write is a conditional save
// on the account version; a writer that loses the race re-reads the account
// and checks the funds again.
type Ledger struct {
	accounts       interfaces.AccountStore
	transactions   interfaces.TransactionStore
	risk           RiskDecider
	bus            Publisher
	reconciliation interfaces.ReconciliationQueue

	saveAttempts int
	saveBackoff  time.Duration
	now          func() time.Time
}

type Option func(*Ledger)

// WithSaveRetry sets how many conditional saves are tried per balance write
// and the first wait between them.
func WithSaveRetry(attempts int, initial time.Duration) Option {
	return func(l *Ledger) {
		if attempts > 0 {
			l.saveAttempts = attempts
		}
		if initial > 0 {
			l.saveBackoff = initial
		}
	}
}

// WithClock replaces time.Now for transaction timestamps
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// NewLedger wires the pipeline. reconciliation receives balance corrections
// that could not be applied right away.
func NewLedger(
	accounts interfaces.AccountStore,
	transactions interfaces.TransactionStore,
	risk RiskDecider,
	bus Publisher,
	reconciliation interfaces.ReconciliationQueue,
	opts ...Option,
) *Ledger {
	l := &Ledger{
		accounts:       accounts,
		transactions:   transactions,
		risk:           risk,
		bus:            bus,
		reconciliation: reconciliation,
		saveAttempts:   DefaultSaveAttempts,
		saveBackoff:    defaultSaveBackoff,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateTransactionRequest is a movement as a client asks for it. Type is
// matched case-insensitively; Currency is optional and, when given, must be
// the account's currency.
type CreateTransactionRequest struct {
	AccountNumber string
	Type          string
	Amount        decimal.Decimal
	Currency      string
}

// CreateTransaction runs the pipeline for one movement. Every refusal leaves
// the account and the transaction log untouched and comes back as an *Error.
//
// Once the risk check passed, the balance write and the transaction record
// are finished even if ctx is cancelled: they run on a detached context.
func (l *Ledger) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (models.Transaction, error) {
	account, err := l.findAccount(ctx, req.AccountNumber)
	if err != nil {
		return models.Transaction{}, err
	}

	txType, ok := models.ParseTransactionType(req.Type)
	if !ok {
		return models.Transaction{}, newError(KindInvalidTransactionType, "unsupported type %q", req.Type)
	}
	if !req.Amount.IsPositive() {
		return models.Transaction{}, newError(KindInvalidAmount, "amount must be positive, got %s", req.Amount)
	}
	if !models.FitsMoneyScale(req.Amount) {
		return models.Transaction{}, newError(KindInvalidAmount, "amount %s has more than %d decimal places", req.Amount, models.MoneyScale)
	}
	if cur := strings.TrimSpace(req.Currency); cur != "" && !strings.EqualFold(cur, account.Currency) {
		return models.Transaction{}, newError(KindCurrencyMismatch, "account %s holds %s, not %s", account.Number, account.Currency, cur)
	}

	// The account's currency governs the risk decision
	allowed, err := l.risk.IsAllowed(ctx, account.Currency, txType, req.Amount)
	if err != nil {
		slog.ErrorContext(ctx, "risk decision unavailable", "account", account.Number, "error", err)
		return models.Transaction{}, &Error{Kind: KindRiskUnavailable, Err: err}
	}
	if !allowed {
		slog.InfoContext(ctx, "transaction rejected by risk",
			"account", account.Number, "type", txType, "amount", req.Amount.String())
		return models.Transaction{}, newError(KindRiskRejected, "%s %s %s refused", txType, req.Amount, account.Currency)
	}

	if txType == models.Debit && account.Balance.LessThan(req.Amount) {
		return models.Transaction{}, insufficientFunds(*account, req.Amount)
	}

	writeCtx := context.WithoutCancel(ctx)

	updated, err := l.applyMovement(writeCtx, *account, txType, req.Amount)
	if err != nil {
		return models.Transaction{}, err
	}

	tx, err := l.transactions.Save(writeCtx, models.Transaction{
		ID:            uuid.New().String(),
		AccountID:     updated.ID,
		AccountNumber: updated.Number,
		Currency:      updated.Currency,
		Type:          txType,
		Amount:        req.Amount,
		Timestamp:     l.now().UTC(),
		Status:        models.StatusCompleted,
	})
	if err != nil {
		slog.ErrorContext(writeCtx, "transaction record failed after balance write",
			"account", updated.Number, "error", err)
		l.compensate(writeCtx, updated.ID, txType, req.Amount, err)
		return models.Transaction{}, newError(KindStoreUnavailable, "save transaction: %w", err)
	}
	tx.CorrelationID = correlation.FromContext(ctx)

	if err := l.bus.Publish(tx); err != nil {
		slog.WarnContext(writeCtx, "transaction not broadcast", "transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(writeCtx, "transaction completed",
		"transaction_id", tx.ID, "account", tx.AccountNumber, "type", tx.Type,
		"amount", tx.Amount.String(), "balance", updated.Balance.String())
	return tx, nil
}

// TransactionsByAccount lists an account's transactions, newest first
func (l *Ledger) TransactionsByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	account, err := l.findAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	txs, err := l.transactions.FindByAccountOrderedByTimeDesc(ctx, account.ID)
	if err != nil {
		return nil, newError(KindStoreUnavailable, "list transactions: %w", err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// Account returns the current state of an account, balance included
func (l *Ledger) Account(ctx context.Context, accountNumber string) (models.Account, error) {
	account, err := l.findAccount(ctx, accountNumber)
	if err != nil {
		return models.Account{}, err
	}
	return *account, nil
}

func (l *Ledger) findAccount(ctx context.Context, number string) (*models.Account, error) {
	account, err := l.accounts.FindByNumber(ctx, strings.TrimSpace(number))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, newError(KindAccountNotFound, "account %q", number)
	case err != nil:
		return nil, newError(KindStoreUnavailable, "find account: %w", err)
	}
	return account, nil
}

// applyMovement writes balance = type.Apply(balance, amount) with a
// compare-and-swap on the account version. On a conflict it re-reads the
// account and checks the funds again, so a debit can still fail with
// insufficient funds after losing a race.
func (l *Ledger) applyMovement(ctx context.Context, account models.Account, txType models.TransactionType, amount decimal.Decimal) (models.Account, error) {
	var (
		saved    models.Account
		attempts int
	)
	op := func() error {
		attempts++
		if txType == models.Debit && account.Balance.LessThan(amount) {
			return backoff.Permanent(insufficientFunds(account, amount))
		}

		next := account
		next.Balance = txType.Apply(account.Balance, amount)
		result, err := l.accounts.Save(ctx, next)
		if err == nil {
			saved = result
			return nil
		}
		if !errors.Is(err, storage.ErrVersionConflict) {
			return backoff.Permanent(newError(KindStoreUnavailable, "save account: %w", err))
		}

		fresh, err := l.accounts.FindByID(ctx, account.ID)
		if err != nil {
			return backoff.Permanent(newError(KindStoreUnavailable, "reload account: %w", err))
		}
		account = *fresh
		return storage.ErrVersionConflict
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.saveBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(l.saveAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		if _, ok := KindOf(err); ok {
			return models.Account{}, err
		}
		slog.WarnContext(ctx, "account write kept conflicting", "account", account.Number, "attempts", attempts)
		return models.Account{}, newError(KindStoreUnavailable, "account %s: %w after %d attempts", account.Number, err, attempts)
	}
	return saved, nil
}

func insufficientFunds(account models.Account, amount decimal.Decimal) *Error {
	return newError(KindInsufficientFunds, "account %s has %s %s, needs %s",
		account.Number, account.Balance, account.Currency, amount)
}
