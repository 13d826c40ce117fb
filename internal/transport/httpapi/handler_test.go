package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
	"github.com/sheikh-saqib/transactions-service/internal/events"
	"github.com/sheikh-saqib/transactions-service/internal/ledger"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/risk"
)

// ---- mock implementations ----

type mockTransactionService struct {
	createFn  func(ledger.CreateTransactionRequest) (models.Transaction, error)
	listFn    func(string) ([]models.Transaction, error)
	accountFn func(string) (models.Account, error)
	lastCtx   context.Context
}

func (m *mockTransactionService) CreateTransaction(ctx context.Context, req ledger.CreateTransactionRequest) (models.Transaction, error) {
	m.lastCtx = ctx
	if m.createFn != nil {
		return m.createFn(req)
	}
	return models.Transaction{}, fmt.Errorf("not configured")
}

func (m *mockTransactionService) TransactionsByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	if m.listFn != nil {
		return m.listFn(accountNumber)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransactionService) Account(ctx context.Context, accountNumber string) (models.Account, error) {
	if m.accountFn != nil {
		return m.accountFn(accountNumber)
	}
	return models.Account{}, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTestRouter(svc TransactionService, bus *events.Bus) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if bus == nil {
		bus = events.NewBus(8)
	}
	h := NewHandler(svc, bus, func() risk.State { return risk.StateClosed })
	return NewRouter(h, true)
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body.Error
}

// ---- test data ----

var testTransaction = models.Transaction{
	ID: "tx-001", AccountID: "acc-1", AccountNumber: "001-0001",
	Currency: "PEN", Type: models.Debit, Amount: decimal.NewFromInt(100),
	Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), Status: models.StatusCompleted,
}

func debitBody() map[string]any {
	return map[string]any{"accountNumber": "001-0001", "type": "DEBIT", "amount": 100, "currency": "PEN"}
}

func failWith(kind ledger.Kind) func(ledger.CreateTransactionRequest) (models.Transaction, error) {
	return func(ledger.CreateTransactionRequest) (models.Transaction, error) {
		return models.Transaction{}, &ledger.Error{Kind: kind, Err: fmt.Errorf("test")}
	}
}

// ---- tests ----

func TestCreateTransaction(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		createFn       func(ledger.CreateTransactionRequest) (models.Transaction, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "created",
			body:           debitBody(),
			createFn:       func(ledger.CreateTransactionRequest) (models.Transaction, error) { return testTransaction, nil },
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "account not found",
			body:           debitBody(),
			createFn:       failWith(ledger.KindAccountNotFound),
			expectedStatus: http.StatusNotFound,
			expectedError:  "account_not_found",
		},
		{
			name:           "invalid type",
			body:           debitBody(),
			createFn:       failWith(ledger.KindInvalidTransactionType),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_transaction_type",
		},
		{
			name:           "currency mismatch",
			body:           debitBody(),
			createFn:       failWith(ledger.KindCurrencyMismatch),
			expectedStatus: http.StatusBadRequest,
			expectedError:  "currency_mismatch",
		},
		{
			name:           "risk rejected",
			body:           debitBody(),
			createFn:       failWith(ledger.KindRiskRejected),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "risk_rejected",
		},
		{
			name:           "insufficient funds",
			body:           debitBody(),
			createFn:       failWith(ledger.KindInsufficientFunds),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedError:  "insufficient_funds",
		},
		{
			name:           "risk unavailable",
			body:           debitBody(),
			createFn:       failWith(ledger.KindRiskUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "risk_unavailable",
		},
		{
			name:           "store unavailable",
			body:           debitBody(),
			createFn:       failWith(ledger.KindStoreUnavailable),
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "store_unavailable",
		},
		{
			name: "unexpected error",
			body: debitBody(),
			createFn: func(ledger.CreateTransactionRequest) (models.Transaction, error) {
				return models.Transaction{}, fmt.Errorf("boom")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "internal_server_error",
		},
		{
			name:           "missing fields",
			body:           map[string]any{},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_failed",
		},
		{
			name:           "amount below minimum",
			body:           map[string]any{"accountNumber": "001-0001", "type": "DEBIT", "amount": "0.001", "currency": "PEN"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_failed",
		},
		{
			name:           "negative amount",
			body:           map[string]any{"accountNumber": "001-0001", "type": "DEBIT", "amount": -5, "currency": "PEN"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "validation_failed",
		},
		{
			name:           "not json",
			body:           "definitely not an object",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "invalid_request_body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockTransactionService{createFn: tt.createFn}, nil)
			w := doRequest(router, http.MethodPost, "/api/transactions", tt.body)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedError != "" {
				assert.Equal(t, tt.expectedError, errorCode(t, w))
			}
		})
	}
}

func TestRefusedInputNamesTheField(t *testing.T) {
	tests := []struct {
		kind  ledger.Kind
		field string
	}{
		{ledger.KindCurrencyMismatch, "currency"},
		{ledger.KindInvalidTransactionType, "type"},
		{ledger.KindInvalidAmount, "amount"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			svc := &mockTransactionService{createFn: func(ledger.CreateTransactionRequest) (models.Transaction, error) {
				return models.Transaction{}, &ledger.Error{Kind: tt.kind, Err: fmt.Errorf("account 001-0001 holds PEN, not USD")}
			}}
			w := doRequest(newTestRouter(svc, nil), http.MethodPost, "/api/transactions", debitBody())

			require.Equal(t, http.StatusBadRequest, w.Code)
			var body struct {
				Error   string            `json:"error"`
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, string(tt.kind), body.Error)
			assert.Equal(t, map[string]string{tt.field: "account 001-0001 holds PEN, not USD"}, body.Details)
		})
	}

	// other refusals keep the bare code
	svc := &mockTransactionService{createFn: failWith(ledger.KindRiskRejected)}
	w := doRequest(newTestRouter(svc, nil), http.MethodPost, "/api/transactions", debitBody())
	assert.JSONEq(t, `{"error":"risk_rejected"}`, w.Body.String())
}

func TestCreateTransactionPassesRequestThrough(t *testing.T) {
	var got ledger.CreateTransactionRequest
	svc := &mockTransactionService{createFn: func(req ledger.CreateTransactionRequest) (models.Transaction, error) {
		got = req
		return testTransaction, nil
	}}
	router := newTestRouter(svc, nil)

	body := map[string]any{"accountNumber": "001-0002", "type": "credit", "amount": "12.50", "currency": "PEN"}
	w := doRequest(router, http.MethodPost, "/api/transactions", body)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, "001-0002", got.AccountNumber)
	assert.Equal(t, "credit", got.Type)
	assert.Equal(t, "12.5", got.Amount.String())
	assert.Equal(t, "PEN", got.Currency)

	var tx models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	assert.Equal(t, "tx-001", tx.ID)
	assert.Equal(t, "100", tx.Amount.String())
}

func TestValidationDetailsNameFields(t *testing.T) {
	router := newTestRouter(&mockTransactionService{}, nil)
	w := doRequest(router, http.MethodPost, "/api/transactions", map[string]any{"type": "DEBIT", "amount": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Contains(t, body.Details, "accountNumber")
	assert.Contains(t, body.Details, "amount")
	assert.Contains(t, body.Details, "currency")
	assert.NotContains(t, body.Details, "type")
}

func TestListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		listFn         func(string) ([]models.Transaction, error)
		expectedStatus int
		expectedCount  int
	}{
		{
			name: "listed",
			url:  "/api/transactions?accountNumber=001-0001",
			listFn: func(number string) ([]models.Transaction, error) {
				return []models.Transaction{testTransaction, testTransaction}, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "empty list",
			url:            "/api/transactions?accountNumber=001-0003",
			listFn:         func(string) ([]models.Transaction, error) { return []models.Transaction{}, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "account not found",
			url:  "/api/transactions?accountNumber=404",
			listFn: func(string) ([]models.Transaction, error) {
				return nil, &ledger.Error{Kind: ledger.KindAccountNotFound}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "missing account number",
			url:            "/api/transactions",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&mockTransactionService{listFn: tt.listFn}, nil)
			w := doRequest(router, http.MethodGet, tt.url, nil)

			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedStatus == http.StatusOK {
				var txs []models.Transaction
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
				assert.Len(t, txs, tt.expectedCount)
			}
		})
	}
}

func TestGetAccount(t *testing.T) {
	svc := &mockTransactionService{accountFn: func(number string) (models.Account, error) {
		if number != "001-0001" {
			return models.Account{}, &ledger.Error{Kind: ledger.KindAccountNotFound}
		}
		return models.Account{ID: "acc-1", Number: number, HolderName: "Ana Peru", Currency: "PEN", Balance: decimal.NewFromInt(2000), Version: 7}, nil
	}}
	router := newTestRouter(svc, nil)

	w := doRequest(router, http.MethodGet, "/api/accounts/001-0001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"acc-1","number":"001-0001","holderName":"Ana Peru","currency":"PEN","balance":"2000"}`, w.Body.String())

	w = doRequest(router, http.MethodGet, "/api/accounts/001-9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCorrelationHeader(t *testing.T) {
	svc := &mockTransactionService{createFn: func(ledger.CreateTransactionRequest) (models.Transaction, error) {
		return testTransaction, nil
	}}
	router := newTestRouter(svc, nil)

	b, _ := json.Marshal(debitBody())
	req, _ := http.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(string(b)))
	req.Header.Set(correlation.Header, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(correlation.Header))
	assert.Equal(t, "abc-123", correlation.FromContext(svc.lastCtx))

	// generated when absent or blank, and the same id reaches the service
	req, _ = http.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(string(b)))
	req.Header.Set(correlation.Header, "   ")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	generated := w.Header().Get(correlation.Header)
	assert.NotEmpty(t, strings.TrimSpace(generated))
	assert.Equal(t, generated, correlation.FromContext(svc.lastCtx))
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockTransactionService{}, nil)
	w := doRequest(router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","stream_subscribers":0,"risk_breaker":"CLOSED"}`, w.Body.String())
}

func TestStreamTransactions(t *testing.T) {
	bus := events.NewBus(8)
	defer bus.Close()
	srv := httptest.NewServer(newTestRouter(&mockTransactionService{}, bus))
	defer srv.Close()

	// committed before the client connects: never delivered
	require.NoError(t, bus.Publish(models.Transaction{ID: "too-early"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/transactions", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Publish(testTransaction))

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	assert.Equal(t, "transaction", event)
	var got models.Transaction
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "tx-001", got.ID)

	// the subscription goes away with the client
	cancel()
	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStreamEndsWhenBusCloses(t *testing.T) {
	bus := events.NewBus(8)
	srv := httptest.NewServer(newTestRouter(&mockTransactionService{}, bus))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/stream/transactions", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	// still buffered events are drained before the stream ends
	require.NoError(t, bus.Publish(testTransaction))
	bus.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(body), "event:transaction"))
	assert.Zero(t, bus.Subscribers())
}
