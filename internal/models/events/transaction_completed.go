package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

// TransactionCompleted is the wire payload relayed to Kafka for every committed transaction
type TransactionCompleted struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	AccountNumber string          `json:"account_number"`
	Currency      string          `json:"currency"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewTransactionCompleted maps a committed transaction onto its event
func NewTransactionCompleted(tx models.Transaction) TransactionCompleted {
	return TransactionCompleted{
		TransactionID: tx.ID,
		AccountID:     tx.AccountID,
		AccountNumber: tx.AccountNumber,
		Currency:      tx.Currency,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Status:        string(tx.Status),
		OccurredAt:    tx.Timestamp,
		CorrelationID: tx.CorrelationID,
	}
}
