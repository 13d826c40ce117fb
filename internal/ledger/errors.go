package ledger

import (
	"errors"
	"fmt"
)

// Kind classifies why a transaction was refused. The values double as the
// error codes returned to API clients.
type Kind string

const (
	KindAccountNotFound        Kind = "account_not_found"
	KindInvalidTransactionType Kind = "invalid_transaction_type"
	KindInvalidAmount          Kind = "invalid_amount"
	KindCurrencyMismatch       Kind = "currency_mismatch"
	KindRiskRejected           Kind = "risk_rejected"
	KindRiskUnavailable        Kind = "risk_unavailable"
	KindInsufficientFunds      Kind = "insufficient_funds"
	KindStoreUnavailable       Kind = "store_unavailable"
)

// Error is returned by every Ledger operation that fails. Match it against
// the sentinels below with errors.Is.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so a wrapped error still equals
// its sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrAccountNotFound        = &Error{Kind: KindAccountNotFound}
	ErrInvalidTransactionType = &Error{Kind: KindInvalidTransactionType}
	ErrInvalidAmount          = &Error{Kind: KindInvalidAmount}
	ErrCurrencyMismatch       = &Error{Kind: KindCurrencyMismatch}
	ErrRiskRejected           = &Error{Kind: KindRiskRejected}
	ErrRiskUnavailable        = &Error{Kind: KindRiskUnavailable}
	ErrInsufficientFunds      = &Error{Kind: KindInsufficientFunds}
	ErrStoreUnavailable       = &Error{Kind: KindStoreUnavailable}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or false when err did not come from the ledger
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
