package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationEntry records a balance write that went through while the
// matching transaction record could not be stored. It carries the movement
// that still has to be undone on the account.
type ReconciliationEntry struct {
	ID        string          // unique identifier
	AccountID string          // account whose balance must be corrected
	Type      TransactionType // movement to apply (the inverse of the original)
	Amount    decimal.Decimal // always positive
	Reason    string          // why the transaction record was lost
	Attempts  int             // compensation attempts so far
	CreatedAt time.Time
}
