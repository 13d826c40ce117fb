package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sort"
	"sync" // protects the maps below from concurrent access

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces" // store interfaces
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

// MemoryAccountStore is an in-memory implementation of interfaces.AccountStore.
// Saves are conditional on the account version, so concurrent writers of the
// same account cannot overwrite each other.
type MemoryAccountStore struct {
	mu       sync.Mutex                // guards both maps
	byID     map[string]models.Account // account id -> account
	byNumber map[string]string         // account number -> account id
}

// NewMemoryAccountStore creates and returns an empty MemoryAccountStore
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:     make(map[string]models.Account),
		byNumber: make(map[string]string),
	}
}

// Create stores a new account. An empty ID gets a generated one; the
// version always starts at 1.
func (m *MemoryAccountStore) Create(ctx context.Context, account models.Account) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byNumber[account.Number]; exists {
		return models.Account{}, storage.ErrDuplicate
	}
	if !models.FitsMoneyScale(account.Balance) {
		return models.Account{}, storage.ErrScale
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.Version = 1

	m.byID[account.ID] = account
	m.byNumber[account.Number] = account.ID
	return account, nil
}

// FindByNumber returns a copy of the account, so callers can mutate it freely
func (m *MemoryAccountStore) FindByNumber(ctx context.Context, number string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byNumber[number]
	if !exists {
		return nil, storage.ErrNotFound
	}
	account := m.byID[id]
	return &account, nil
}

func (m *MemoryAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.byID[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &account, nil
}

// Save is a compare-and-swap on Version: it fails with
// storage.ErrVersionConflict when someone else saved the account first.
func (m *MemoryAccountStore) Save(ctx context.Context, account models.Account) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.byID[account.ID]
	if !exists {
		return models.Account{}, storage.ErrNotFound
	}
	if current.Version != account.Version {
		return models.Account{}, storage.ErrVersionConflict
	}
	if !models.FitsMoneyScale(account.Balance) {
		return models.Account{}, storage.ErrScale
	}

	account.Version++
	m.byID[account.ID] = account
	return account, nil
}

// MemoryTransactionStore is an append-only in-memory transaction log.
type MemoryTransactionStore struct {
	mu           sync.Mutex
	transactions []models.Transaction
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{
		transactions: make([]models.Transaction, 0),
	}
}

// Save appends tx, generating an ID when it has none
func (m *MemoryTransactionStore) Save(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if !models.FitsMoneyScale(tx.Amount) {
		return models.Transaction{}, storage.ErrScale
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	m.transactions = append(m.transactions, tx)
	return tx, nil
}

// FindByAccountOrderedByTimeDesc returns the account's transactions, newest first.
// Transactions with the same timestamp keep their reverse insertion order.
func (m *MemoryTransactionStore) FindByAccountOrderedByTimeDesc(ctx context.Context, accountID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Transaction
	for i := len(m.transactions) - 1; i >= 0; i-- {
		if m.transactions[i].AccountID == accountID {
			result = append(result, m.transactions[i])
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result, nil
}

// Len reports how many transactions were stored, for any account
func (m *MemoryTransactionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

// Compile-time checks: ensure the memory stores implement the store interfaces
var (
	_ interfaces.AccountStore     = (*MemoryAccountStore)(nil)
	_ interfaces.TransactionStore = (*MemoryTransactionStore)(nil)
)
