package risk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrUnavailable means no decision could be made at all: the remote call
// failed and the local fallback could not run either. It is distinct from a
// rejection.
var ErrUnavailable = errors.New("risk: decision unavailable")

// Pool runs blocking work on a bounded set of goroutines, apart from the
// goroutines serving requests.
type Pool struct {
	sem *semaphore.Weighted
}

func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Do runs fn on a pool worker and waits for its verdict or for ctx. A panic
// inside fn is returned as an error.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) bool) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire worker: %w", err)
	}

	type result struct {
		allowed bool
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("worker panicked: %v", r)}
			}
		}()
		done <- result{allowed: fn(ctx)}
	}()

	select {
	case r := <-done:
		return r.allowed, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WithFallback answers with the local evaluator whenever next fails, whether
// the remote was tried and exhausted or the breaker refused the call. The
// local verdict runs on pool within timeout; if even that fails the result
// is ErrUnavailable.
func WithFallback(local *LocalEvaluator, pool *Pool, timeout time.Duration) Layer {
	return func(next Call) Call {
		return func(ctx context.Context, req Request) (bool, error) {
			allowed, err := next(ctx, req)
			if err == nil {
				return allowed, nil
			}

			reason := "remote exhausted"
			if isShortCircuit(err) {
				reason = "circuit open"
			}
			slog.WarnContext(ctx, "using local risk evaluator", "reason", reason, "error", err)

			fallbackCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fallbackCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			allowed, poolErr := pool.Do(fallbackCtx, func(ctx context.Context) bool {
				return local.IsAllowedLegacy(ctx, req.Currency, req.Type, req.Amount)
			})
			if poolErr != nil {
				slog.ErrorContext(ctx, "local risk evaluator failed", "error", poolErr)
				return false, fmt.Errorf("%w: %w", ErrUnavailable, poolErr)
			}

			slog.InfoContext(ctx, "local risk evaluator decided", "allowed", allowed)
			return allowed, nil
		}
	}
}
