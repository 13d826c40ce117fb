package models

import "github.com/shopspring/decimal"

// Account is a balance-holding account. The store owns it; the ledger only
// works on a copy while it mutates the balance and writes it back.
type Account struct {
	ID         string          `json:"id"`
	Number     string          `json:"number"` // human readable, unique
	HolderName string          `json:"holderName"`
	Currency   string          `json:"currency"`
	Balance    decimal.Decimal `json:"balance"`

	// Version is the optimistic concurrency token. A save only succeeds when
	// the stored version still equals this value; the store then bumps it.
	Version int64 `json:"-"`
}
