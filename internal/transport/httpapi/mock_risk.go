package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// mockRiskDebitCap is the largest DEBIT the mock risk service allows
var mockRiskDebitCap = decimal.NewFromInt(1200)

// MockRiskAllow stands in for the remote risk service:
//
//	GET /mock/risk/allow?currency=PEN&type=DEBIT&amount=100[&fail=true][&delayMs=500]
//
// It answers a bare JSON boolean. fail=true answers 500 instead, and delayMs
// holds the answer back, which is how timeouts and the breaker are exercised
// by hand.
func MockRiskAllow(c *gin.Context) {
	ctx := c.Request.Context()

	currency := c.Query("currency")
	txType := c.Query("type")
	amount, amountErr := decimal.NewFromString(c.Query("amount"))
	fail, failErr := strconv.ParseBool(c.DefaultQuery("fail", "false"))
	delayMs, delayErr := strconv.ParseInt(c.DefaultQuery("delayMs", "0"), 10, 64)

	details := map[string]string{}
	if currency == "" {
		details["currency"] = "This field is required"
	}
	if txType == "" {
		details["type"] = "This field is required"
	}
	if amountErr != nil {
		details["amount"] = "Invalid value"
	}
	if failErr != nil {
		details["fail"] = "Invalid value"
	}
	if delayErr != nil || delayMs < 0 {
		details["delayMs"] = "Invalid value"
	}
	if len(details) > 0 {
		respondWithValidationError(c, details)
		return
	}

	slog.InfoContext(ctx, "mock risk check",
		"currency", currency, "type", txType, "amount", amount.String(), "fail", fail, "delay_ms", delayMs)

	if fail {
		slog.WarnContext(ctx, "simulating risk service failure")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "risk_service_unavailable"})
		return
	}

	allowed := !(strings.EqualFold(txType, "DEBIT") && amount.GreaterThan(mockRiskDebitCap))

	if delayMs > 0 {
		timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	slog.InfoContext(ctx, "mock risk decision", "allowed", allowed)
	c.JSON(http.StatusOK, allowed)
}
