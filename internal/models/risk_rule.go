package models

import "github.com/shopspring/decimal"

// RiskRule caps a single debit for one currency
type RiskRule struct {
	Currency      string          `json:"currency"`
	MaxDebitPerTx decimal.Decimal `json:"maxDebitPerTx"`
}
