package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

type PostgresReconciliationQueue struct {
	db *sql.DB
}

func NewPostgresReconciliationQueue(db *sql.DB) *PostgresReconciliationQueue {
	return &PostgresReconciliationQueue{db: db}
}

func (p *PostgresReconciliationQueue) Enqueue(ctx context.Context, entry models.ReconciliationEntry) error {
	const query = `INSERT INTO reconciliation_queue (id, account_id, type, amount, reason, attempts, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if !models.FitsMoneyScale(entry.Amount) {
		return fmt.Errorf("amount %s: %w", entry.Amount, storage.ErrScale)
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := p.db.ExecContext(ctx, query,
		entry.ID, entry.AccountID, string(entry.Type), entry.Amount, entry.Reason, entry.Attempts, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue reconciliation: %w", translate(err))
	}
	return nil
}

func (p *PostgresReconciliationQueue) Pending(ctx context.Context, limit int) ([]models.ReconciliationEntry, error) {
	query := `SELECT id, account_id, type, amount, reason, attempts, created_at
	FROM reconciliation_queue
	ORDER BY created_at ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reconciliation queue: %w", err)
	}
	defer rows.Close()

	var entries []models.ReconciliationEntry
	for rows.Next() {
		var (
			entry  models.ReconciliationEntry
			txType string
		)
		if err := rows.Scan(&entry.ID, &entry.AccountID, &txType, &entry.Amount, &entry.Reason, &entry.Attempts, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reconciliation entry: %w", err)
		}
		entry.Type = models.TransactionType(txType)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (p *PostgresReconciliationQueue) Resolve(ctx context.Context, id string) error {
	return p.execOne(ctx, `DELETE FROM reconciliation_queue WHERE id = $1`, id)
}

func (p *PostgresReconciliationQueue) Retry(ctx context.Context, id string) error {
	return p.execOne(ctx, `UPDATE reconciliation_queue SET attempts = attempts + 1 WHERE id = $1`, id)
}

func (p *PostgresReconciliationQueue) execOne(ctx context.Context, query, id string) error {
	res, err := p.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

var _ interfaces.ReconciliationQueue = (*PostgresReconciliationQueue)(nil)
