package models

import "github.com/shopspring/decimal"

// MoneyScale is the number of decimal places an amount or balance may carry.
// The postgres columns are NUMERIC(20, 4) to match.
const MoneyScale = 4

// FitsMoneyScale reports whether d can be stored without rounding
func FitsMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}
