package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	number      TEXT NOT NULL UNIQUE,
	holder_name TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL,
	balance     NUMERIC(20, 4) NOT NULL,
	version     BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS transactions (
	id             TEXT PRIMARY KEY,
	account_id     TEXT NOT NULL REFERENCES accounts (id),
	account_number TEXT NOT NULL,
	currency       TEXT NOT NULL,
	type           TEXT NOT NULL,
	amount         NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
	created_at     TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	reason         TEXT
);

CREATE INDEX IF NOT EXISTS transactions_account_created_idx
	ON transactions (account_id, created_at DESC);

CREATE TABLE IF NOT EXISTS risk_rules (
	currency         TEXT PRIMARY KEY,
	max_debit_per_tx NUMERIC(20, 4) NOT NULL
);

CREATE TABLE IF NOT EXISTS reconciliation_queue (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL,
	type       TEXT NOT NULL,
	amount     NUMERIC(20, 4) NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	attempts   INT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the tables used by the postgres stores when they do not exist yet
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Open connects with the pq driver and checks the connection
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
