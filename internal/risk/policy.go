package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

// ErrAttemptTimeout is returned by the timeout layer when one attempt runs
// out of its time budget.
var ErrAttemptTimeout = errors.New("risk: attempt timed out")

// Request is what a risk decision is made on.
type Request struct {
	Currency string
	Type     models.TransactionType
	Amount   decimal.Decimal
}

// Call makes one risk decision. A false result is a normal answer; only
// infrastructure problems are errors.
type Call func(ctx context.Context, req Request) (bool, error)

// Layer decorates a Call with one resilience concern.
type Layer func(next Call) Call

// Chain wraps call with layers, the first layer being the innermost.
func Chain(call Call, layers ...Layer) Call {
	for _, layer := range layers {
		call = layer(call)
	}
	return call
}

// WithTimeout gives every call through it at most d. The wrapped call runs in
// its own goroutine so a callee that ignores its context still cannot hold
// the caller past the budget. d <= 0 disables the layer.
func WithTimeout(d time.Duration) Layer {
	return func(next Call) Call {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, req Request) (bool, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				allowed bool
				err     error
			}
			done := make(chan result, 1)
			go func() {
				allowed, err := next(attemptCtx, req)
				done <- result{allowed, err}
			}()

			select {
			case r := <-done:
				if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
					return false, fmt.Errorf("%w after %s: %w", ErrAttemptTimeout, d, r.err)
				}
				return r.allowed, r.err
			case <-attemptCtx.Done():
				if err := ctx.Err(); err != nil {
					return false, err
				}
				return false, fmt.Errorf("%w after %s", ErrAttemptTimeout, d)
			}
		}
	}
}

// WithRetry makes up to attempts calls, waiting an exponentially growing
// interval starting at initial between them. Only errors are retried: a
// false decision is final. Cancellation of ctx stops retrying at once.
func WithRetry(attempts int, initial time.Duration) Layer {
	return func(next Call) Call {
		if attempts <= 1 {
			return next
		}
		return func(ctx context.Context, req Request) (bool, error) {
			var (
				allowed bool
				attempt int
			)
			op := func() error {
				attempt++
				ok, err := next(ctx, req)
				if err == nil {
					allowed = ok
					return nil
				}
				if ctx.Err() != nil {
					return backoff.Permanent(ctx.Err())
				}
				return err
			}

			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxElapsedTime = 0
			policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

			err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
				slog.WarnContext(ctx, "remote risk attempt failed, retrying",
					"attempt", attempt, "wait", wait, "error", err)
			})
			if err != nil {
				return false, err
			}
			return allowed, nil
		}
	}
}

// State is the circuit breaker state.
type State string

const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// BreakerSettings configures the circuit breaker around the remote call.
type BreakerSettings struct {
	Name string
	// Window is how often failure counts are cleared while closed.
	Window time.Duration
	// MinRequests is how many calls a window needs before it may trip.
	MinRequests uint32
	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenTrials is how many trial calls the half-open state lets through.
	HalfOpenTrials uint32
}

// windowBuckets splits the breaker window into a rolling count
const windowBuckets = 10

// callerGoneError marks a call abandoned by its caller. The breaker counts
// it neither as a success nor as a failure, so a half-open trial is handed
// to the next caller.
type callerGoneError struct{ err error }

func (e *callerGoneError) Error() string { return e.err.Error() }
func (e *callerGoneError) Unwrap() error { return e.err }

// Breaker is a CLOSED -> OPEN -> HALF_OPEN -> CLOSED|OPEN circuit breaker.
// While open, calls fail immediately with gobreaker.ErrOpenState without
// reaching the wrapped call.
type Breaker struct {
	cb *gobreaker.CircuitBreaker[bool]
}

func NewBreaker(s BreakerSettings) *Breaker {
	if s.Name == "" {
		s.Name = "risk-remote"
	}
	if s.MinRequests == 0 {
		s.MinRequests = 1
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.5
	}
	if s.HalfOpenTrials == 0 {
		s.HalfOpenTrials = 1
	}

	return &Breaker{cb: gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenTrials,
		Interval:    s.Window,
		Timeout:     s.Cooldown,
		BucketPeriod: s.Window / windowBuckets,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			observed := c.TotalSuccesses + c.TotalFailures
			if observed < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(observed) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"breaker", name, "from", toState(from), "to", toState(to))
		},
		IsSuccessful: func(err error) bool { return err == nil },
		// a caller walking away says nothing about the remote's health
		IsExcluded: func(err error) bool {
			var gone *callerGoneError
			return errors.As(err, &gone)
		},
	})}
}

// Layer returns the breaker as a policy layer
func (b *Breaker) Layer() Layer {
	return func(next Call) Call {
		return func(ctx context.Context, req Request) (bool, error) {
			allowed, err := b.cb.Execute(func() (bool, error) {
				allowed, err := next(ctx, req)
				if err != nil && ctx.Err() != nil {
					return allowed, &callerGoneError{err: err}
				}
				return allowed, err
			})
			var gone *callerGoneError
			if errors.As(err, &gone) {
				err = gone.err
			}
			return allowed, err
		}
	}
}

func (b *Breaker) State() State {
	return toState(b.cb.State())
}

func toState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// isShortCircuit reports whether err came from the breaker refusing the call
func isShortCircuit(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
