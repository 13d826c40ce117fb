package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces" // store interfaces
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

const uniqueViolation = "23505"

type PostgresAccountStore struct {
	db *sql.DB
}

func NewPostgresAccountStore(db *sql.DB) *PostgresAccountStore {
	return &PostgresAccountStore{
		db: db,
	}
}

func (p *PostgresAccountStore) Create(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `INSERT INTO accounts (id, number, holder_name, currency, balance, version)
	VALUES ($1, $2, $3, $4, $5, 1)`

	if !models.FitsMoneyScale(account.Balance) {
		return models.Account{}, fmt.Errorf("balance %s: %w", account.Balance, storage.ErrScale)
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.Version = 1

	_, err := p.db.ExecContext(ctx, query, account.ID, account.Number, account.HolderName, account.Currency, account.Balance)
	if err != nil {
		return models.Account{}, translate(err)
	}
	return account, nil
}

func (p *PostgresAccountStore) FindByNumber(ctx context.Context, number string) (*models.Account, error) {
	const query = `SELECT id, number, holder_name, currency, balance, version
	FROM accounts WHERE number = $1`

	return p.findOne(ctx, query, number)
}

func (p *PostgresAccountStore) FindByID(ctx context.Context, id string) (*models.Account, error) {
	const query = `SELECT id, number, holder_name, currency, balance, version
	FROM accounts WHERE id = $1`

	return p.findOne(ctx, query, id)
}

func (p *PostgresAccountStore) findOne(ctx context.Context, query string, arg string) (*models.Account, error) {
	var account models.Account
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.Number,
		&account.HolderName,
		&account.Currency,
		&account.Balance,
		&account.Version,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	return &account, nil
}

// Save only updates the row while its version is still account.Version.
// Zero affected rows means either the account is gone or another writer
// got there first; a second lookup tells the two apart.
func (p *PostgresAccountStore) Save(ctx context.Context, account models.Account) (models.Account, error) {
	const query = `UPDATE accounts
	SET holder_name = $2, currency = $3, balance = $4, version = version + 1
	WHERE id = $1 AND version = $5
	RETURNING version`

	if !models.FitsMoneyScale(account.Balance) {
		return models.Account{}, fmt.Errorf("balance %s: %w", account.Balance, storage.ErrScale)
	}

	var version int64
	err := p.db.QueryRowContext(ctx, query,
		account.ID, account.HolderName, account.Currency, account.Balance, account.Version,
	).Scan(&version)

	if err == sql.ErrNoRows {
		if _, findErr := p.FindByID(ctx, account.ID); errors.Is(findErr, storage.ErrNotFound) {
			return models.Account{}, storage.ErrNotFound
		}
		return models.Account{}, storage.ErrVersionConflict
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("update account: %w", err)
	}

	account.Version = version
	return account, nil
}

type PostgresTransactionStore struct {
	db *sql.DB
}

func NewPostgresTransactionStore(db *sql.DB) *PostgresTransactionStore {
	return &PostgresTransactionStore{
		db: db,
	}
}

func (p *PostgresTransactionStore) Save(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	const query = `INSERT INTO transactions (id, account_id, account_number, currency, type, amount, created_at, status, reason)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if !models.FitsMoneyScale(tx.Amount) {
		return models.Transaction{}, fmt.Errorf("amount %s: %w", tx.Amount, storage.ErrScale)
	}
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	_, err := p.db.ExecContext(ctx, query,
		tx.ID, tx.AccountID, tx.AccountNumber, tx.Currency, string(tx.Type),
		tx.Amount, tx.Timestamp, string(tx.Status), nullString(tx.Reason),
	)
	if err != nil {
		return models.Transaction{}, translate(err)
	}
	return tx, nil
}

func (p *PostgresTransactionStore) FindByAccountOrderedByTimeDesc(ctx context.Context, accountID string) ([]models.Transaction, error) {
	const query = `SELECT id, account_id, account_number, currency, type, amount, created_at, status, reason
	FROM transactions
	WHERE account_id = $1
	ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var (
			tx     models.Transaction
			txType string
			status string
			reason sql.NullString
		)
		if err := rows.Scan(
			&tx.ID,
			&tx.AccountID,
			&tx.AccountNumber,
			&tx.Currency,
			&txType,
			&tx.Amount,
			&tx.Timestamp,
			&status,
			&reason,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		tx.Status = models.TransactionStatus(status)
		tx.Reason = reason.String
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

// translate maps driver errors onto the storage sentinels
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", storage.ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

var (
	_ interfaces.AccountStore     = (*PostgresAccountStore)(nil)
	_ interfaces.TransactionStore = (*PostgresTransactionStore)(nil)
)
