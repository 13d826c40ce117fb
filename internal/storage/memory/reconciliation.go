package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	"github.com/sheikh-saqib/transactions-service/internal/models"
	"github.com/sheikh-saqib/transactions-service/internal/storage"
)

// MemoryReconciliationQueue holds pending balance corrections in FIFO order.
type MemoryReconciliationQueue struct {
	mu      sync.Mutex
	entries []models.ReconciliationEntry
}

func NewMemoryReconciliationQueue() *MemoryReconciliationQueue {
	return &MemoryReconciliationQueue{}
}

func (q *MemoryReconciliationQueue) Enqueue(ctx context.Context, entry models.ReconciliationEntry) error {
	if !models.FitsMoneyScale(entry.Amount) {
		return storage.ErrScale
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	q.entries = append(q.entries, entry)
	return nil
}

// Pending returns up to limit entries, oldest first. limit <= 0 means all.
func (q *MemoryReconciliationQueue) Pending(ctx context.Context, limit int) ([]models.ReconciliationEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.ReconciliationEntry, n)
	copy(out, q.entries[:n])
	return out, nil
}

// Resolve drops the entry once its correction has been applied
func (q *MemoryReconciliationQueue) Resolve(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.ID == id {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

// Retry counts a failed attempt on the entry
func (q *MemoryReconciliationQueue) Retry(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries[i].Attempts++
			return nil
		}
	}
	return storage.ErrNotFound
}

var _ interfaces.ReconciliationQueue = (*MemoryReconciliationQueue)(nil)
