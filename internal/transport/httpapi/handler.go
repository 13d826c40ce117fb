package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/events"
	"github.com/sheikh-saqib/transactions-service/internal/ledger"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/risk"
)

// TransactionService is the part of *ledger.Ledger the handlers use
type TransactionService interface {
	CreateTransaction(ctx context.Context, req ledger.CreateTransactionRequest) (models.Transaction, error)
	TransactionsByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error)
	Account(ctx context.Context, accountNumber string) (models.Account, error)
}

// Stream hands out live subscriptions to committed transactions. *events.Bus
// implements it.
type Stream interface {
	Subscribe(ctx context.Context) *events.Subscription
	Subscribers() int
}

type Handler struct {
	transactions TransactionService
	stream       Stream
	breakerState func() risk.State
}

type CreateTransactionRequest struct {
	AccountNumber string          `json:"accountNumber" validate:"required"`
	Type          string          `json:"type" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required,gte=0.01"`
	Currency      string          `json:"currency" validate:"required"`
}

type listTransactionsQuery struct {
	AccountNumber string `form:"accountNumber" validate:"required"`
}

// NewHandler builds the handlers. breakerState may be nil.
func NewHandler(transactions TransactionService, stream Stream, breakerState func() risk.State) *Handler {
	return &Handler{transactions: transactions, stream: stream, breakerState: breakerState}
}

func (h *Handler) CreateTransaction(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "unreadable request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": codeInvalidBody})
		return
	}
	if details := validateRequest(req); details != nil {
		respondWithValidationError(c, details)
		return
	}

	slog.InfoContext(ctx, "create transaction",
		"account", req.AccountNumber, "type", req.Type, "amount", req.Amount.String())

	tx, err := h.transactions.CreateTransaction(ctx, ledger.CreateTransactionRequest{
		AccountNumber: req.AccountNumber,
		Type:          req.Type,
		Amount:        req.Amount,
		Currency:      req.Currency,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	var q listTransactionsQuery
	q.AccountNumber = c.Query("accountNumber")
	if details := validateRequest(q); details != nil {
		respondWithValidationError(c, details)
		return
	}

	txs, err := h.transactions.TransactionsByAccount(c.Request.Context(), q.AccountNumber)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

func (h *Handler) GetAccount(c *gin.Context) {
	account, err := h.transactions.Account(c.Request.Context(), c.Param("accountNumber"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// StreamTransactions sends every transaction committed while the client is
// connected as a server-sent event named "transaction". Nothing committed
// before the connection is replayed.
func (h *Handler) StreamTransactions(c *gin.Context) {
	ctx := c.Request.Context()
	sub := h.stream.Subscribe(ctx)
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	slog.DebugContext(ctx, "stream subscriber connected")
	c.Stream(func(w io.Writer) bool {
		tx, err := sub.Next(ctx)
		if err != nil {
			return false
		}
		c.SSEvent("transaction", tx)
		return true
	})
	slog.DebugContext(ctx, "stream subscriber gone", "lagged", sub.Lagged())
}

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"status":             "ok",
		"stream_subscribers": h.stream.Subscribers(),
	}
	if h.breakerState != nil {
		body["risk_breaker"] = h.breakerState()
	}
	c.JSON(http.StatusOK, body)
}
