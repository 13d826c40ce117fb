package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

type PostgresRiskRuleStore struct {
	db *sql.DB
}

func NewPostgresRiskRuleStore(db *sql.DB) *PostgresRiskRuleStore {
	return &PostgresRiskRuleStore{db: db}
}

func (p *PostgresRiskRuleStore) FindByCurrency(ctx context.Context, currency string) (models.RiskRule, error) {
	const query = `SELECT currency, max_debit_per_tx FROM risk_rules WHERE currency = $1 LIMIT 1`

	var rule models.RiskRule
	err := p.db.QueryRowContext(ctx, query, strings.ToUpper(currency)).Scan(&rule.Currency, &rule.MaxDebitPerTx)
	if err == sql.ErrNoRows {
		return models.RiskRule{}, storage.ErrNotFound
	}
	if err != nil {
		return models.RiskRule{}, fmt.Errorf("query risk rule: %w", err)
	}
	return rule, nil
}

func (p *PostgresRiskRuleStore) Save(ctx context.Context, rule models.RiskRule) error {
	const query = `INSERT INTO risk_rules (currency, max_debit_per_tx) VALUES ($1, $2)
	ON CONFLICT (currency) DO UPDATE SET max_debit_per_tx = EXCLUDED.max_debit_per_tx`

	if _, err := p.db.ExecContext(ctx, query, strings.ToUpper(rule.Currency), rule.MaxDebitPerTx); err != nil {
		return fmt.Errorf("save risk rule: %w", err)
	}
	return nil
}

var _ interfaces.RiskRuleStore = (*PostgresRiskRuleStore)(nil)
