// Package risk decides whether a transaction may go ahead.
//
// Client asks the remote risk service through an explicit chain of policy
// layers, innermost first: a per-attempt timeout, bounded retries, a circuit
// breaker and finally a fallback to the LocalEvaluator. Only when the
// fallback cannot run either does the caller see ErrUnavailable.
package risk

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

// Config holds the resilience policy of the remote call.
type Config struct {
	Timeout         time.Duration // per attempt
	MaxAttempts     int
	RetryBackoff    time.Duration // first wait between attempts
	Breaker         BreakerSettings
	FallbackWorkers int
	FallbackTimeout time.Duration
}

// DefaultConfig mirrors the values the service runs with when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Timeout:      2 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 100 * time.Millisecond,
		Breaker: BreakerSettings{
			Window:         10 * time.Second,
			MinRequests:    5,
			FailureRatio:   0.5,
			Cooldown:       10 * time.Second,
			HalfOpenTrials: 1,
		},
		FallbackWorkers: 8,
		FallbackTimeout: time.Second,
	}
}

type Client struct {
	call    Call
	breaker *Breaker
}

// NewClient wraps remote, usually (*Remote).Call, in the policy of cfg.
func NewClient(remote Call, local *LocalEvaluator, cfg Config) *Client {
	breaker := NewBreaker(cfg.Breaker)
	call := Chain(remote,
		WithTimeout(cfg.Timeout),
		WithRetry(cfg.MaxAttempts, cfg.RetryBackoff),
		breaker.Layer(),
		WithFallback(local, NewPool(cfg.FallbackWorkers), cfg.FallbackTimeout),
	)
	return &Client{call: call, breaker: breaker}
}

// IsAllowed returns the decision of the remote service, or of the local
// evaluator when the remote cannot answer. The only error is ErrUnavailable.
func (c *Client) IsAllowed(ctx context.Context, currency string, txType models.TransactionType, amount decimal.Decimal) (bool, error) {
	return c.call(ctx, Request{Currency: currency, Type: txType, Amount: amount})
}

// BreakerState reports the current state of the circuit breaker
func (c *Client) BreakerState() State {
	return c.breaker.State()
}
