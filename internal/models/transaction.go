package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType says in which direction money moves for an account
type TransactionType string

const (
	Credit TransactionType = "CREDIT"
	Debit  TransactionType = "DEBIT"
)

// ParseTransactionType normalizes s case-insensitively. The second return is
// false for anything that is not CREDIT or DEBIT.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case Credit, Debit:
		return t, true
	default:
		return "", false
	}
}

// Apply returns the balance after this type of movement of amount
func (t TransactionType) Apply(balance, amount decimal.Decimal) decimal.Decimal {
	if t == Debit {
		return balance.Sub(amount)
	}
	return balance.Add(amount)
}

// Inverse is the type that undoes t
func (t TransactionType) Inverse() TransactionType {
	if t == Debit {
		return Credit
	}
	return Debit
}

type TransactionStatus string

// StatusCompleted is the only status ever persisted: failed attempts are not stored.
const StatusCompleted TransactionStatus = "COMPLETED"

// Transaction is an immutable, append-only record of a committed balance movement
type Transaction struct {
	ID            string            `json:"id"`
	AccountID     string            `json:"accountId"`
	AccountNumber string            `json:"accountNumber"`
	Currency      string            `json:"currency"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Timestamp     time.Time         `json:"timestamp"`
	Status        TransactionStatus `json:"status"`
	Reason        string            `json:"reason,omitempty"`

	// CorrelationID is the id of the request that committed the transaction.
	// It travels with the live event only and is not stored.
	CorrelationID string `json:"-"`
}
