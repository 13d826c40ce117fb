package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/transactions-service/internal/events"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage/memory"
)

var errDiskFull = errors.New("disk full")

// brokenTransactions refuses every record. beforeFail runs first, to let a
// test change the world between the balance write and the failure.
type brokenTransactions struct {
	*memory.MemoryTransactionStore
	beforeFail func()
}

func (b *brokenTransactions) Save(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if b.beforeFail != nil {
		b.beforeFail()
	}
	return models.Transaction{}, errDiskFull
}

type sagaFixture struct {
	accounts *memory.MemoryAccountStore
	records  *brokenTransactions
	queue    *memory.MemoryReconciliationQueue
	bus      *events.Bus
	ledger   *Ledger
}

func newSagaFixture(t *testing.T) *sagaFixture {
	t.Helper()
	f := &sagaFixture{
		accounts: memory.NewMemoryAccountStore(),
		records:  &brokenTransactions{MemoryTransactionStore: memory.NewMemoryTransactionStore()},
		queue:    memory.NewMemoryReconciliationQueue(),
		bus:      events.NewBus(4),
	}
	t.Cleanup(f.bus.Close)
	seedAccounts(t, f.accounts)
	f.ledger = NewLedger(f.accounts, f.records, &fixedRisk{allowed: true}, f.bus, f.queue, WithSaveRetry(3, time.Millisecond))
	return f
}

func (f *sagaFixture) setBalance(t *testing.T, number string, balance int64) {
	t.Helper()
	account, err := f.accounts.FindByNumber(context.Background(), number)
	require.NoError(t, err)
	account.Balance = decimal.NewFromInt(balance)
	_, err = f.accounts.Save(context.Background(), *account)
	require.NoError(t, err)
}

func (f *sagaFixture) balance(t *testing.T, number string) string {
	t.Helper()
	account, err := f.accounts.FindByNumber(context.Background(), number)
	require.NoError(t, err)
	return account.Balance.String()
}

func TestLostRecordIsCompensated(t *testing.T) {
	for _, txType := range []string{"DEBIT", "CREDIT"} {
		t.Run(txType, func(t *testing.T) {
			f := newSagaFixture(t)

			_, err := f.ledger.CreateTransaction(context.Background(), request("001-0001", txType, 300))
			assert.ErrorIs(t, err, ErrStoreUnavailable)
			assert.ErrorIs(t, err, errDiskFull)

			assert.Equal(t, "2000", f.balance(t, "001-0001"))
			pending, err := f.queue.Pending(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, pending)
			assert.Zero(t, f.bus.Published())
		})
	}
}

func TestUnreversibleCreditGoesToReconciliation(t *testing.T) {
	f := newSagaFixture(t)
	// the credited money is spent before the record fails
	f.records.beforeFail = func() { f.setBalance(t, "001-0001", 0) }

	_, err := f.ledger.CreateTransaction(context.Background(), request("001-0001", "CREDIT", 300))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Equal(t, "0", f.balance(t, "001-0001"), "never driven negative")

	pending, err := f.queue.Pending(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	entry := pending[0]
	assert.Equal(t, "acc-1", entry.AccountID)
	assert.Equal(t, models.Debit, entry.Type)
	assert.Equal(t, "300", entry.Amount.String())
	assert.Contains(t, entry.Reason, "disk full")
	assert.NotEmpty(t, entry.ID)
}

func TestReconcilerAppliesQueuedCorrections(t *testing.T) {
	f := newSagaFixture(t)
	f.records.beforeFail = func() { f.setBalance(t, "001-0001", 0) }
	_, err := f.ledger.CreateTransaction(context.Background(), request("001-0001", "CREDIT", 300))
	require.ErrorIs(t, err, ErrStoreUnavailable)

	reconciler := NewReconciler(f.ledger, time.Hour)
	ctx := context.Background()

	// still no money to take back
	resolved, err := reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)
	pending, err := f.queue.Pending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	f.setBalance(t, "001-0001", 500)

	resolved, err = reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)
	assert.Equal(t, "200", f.balance(t, "001-0001"))

	pending, err = f.queue.Pending(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReconcilerRunStopsWithContext(t *testing.T) {
	f := newSagaFixture(t)
	require.NoError(t, f.queue.Enqueue(context.Background(), models.ReconciliationEntry{
		AccountID: "acc-2",
		Type:      models.Credit,
		Amount:    decimal.NewFromInt(50),
		Reason:    "test",
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewReconciler(f.ledger, 10*time.Millisecond).Run(ctx) }()

	require.Eventually(t, func() bool {
		pending, err := f.queue.Pending(context.Background(), 0)
		return err == nil && len(pending) == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "850", f.balance(t, "001-0002"))

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
