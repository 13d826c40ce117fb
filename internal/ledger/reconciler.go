package ledger

import (
	"context"
	"log/slog"
	"time"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
)

const (
	DefaultReconcileInterval = 30 * time.Second
	reconcileBatch           = 50
)

// Reconciler periodically applies the corrections that compensation could
// not apply at the time.
type Reconciler struct {
	ledger   *Ledger
	queue    interfaces.ReconciliationQueue
	interval time.Duration
}

func NewReconciler(l *Ledger, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	return &Reconciler{ledger: l, queue: l.reconciliation, interval: interval}
}

// Run works the queue every interval until ctx is done
func (r *Reconciler) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "reconciler started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reconciler stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reconciliation pass failed", "error", err)
			}
		}
	}
}

// RunOnce applies every pending correction it can and reports how many were
// resolved. Entries that fail again stay queued with one more attempt counted.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	entries, err := r.queue.Pending(ctx, reconcileBatch)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, e := range entries {
		if err := r.ledger.reverse(ctx, e.AccountID, e.Type, e.Amount); err != nil {
			slog.WarnContext(ctx, "reconciliation entry still failing",
				"entry_id", e.ID, "account_id", e.AccountID, "attempts", e.Attempts+1, "error", err)
			if err := r.queue.Retry(ctx, e.ID); err != nil {
				slog.ErrorContext(ctx, "could not record reconciliation attempt", "entry_id", e.ID, "error", err)
			}
			continue
		}

		if err := r.queue.Resolve(ctx, e.ID); err != nil {
			// the correction is applied; leaving the entry would apply it twice
			slog.ErrorContext(ctx, "could not resolve reconciliation entry", "entry_id", e.ID, "error", err)
			continue
		}
		slog.InfoContext(ctx, "reconciliation entry applied",
			"entry_id", e.ID, "account_id", e.AccountID, "type", e.Type, "amount", e.Amount.String())
		resolved++
	}
	return resolved, nil
}
