// Package events broadcasts committed transactions to live subscribers.
//
// The Bus owns a single bounded ring buffer. Publishing writes one slot and
// wakes waiting subscribers by closing a signal channel, so a publisher never
// waits for any subscriber. Each subscriber keeps its own cursor into the
// ring; one that falls further behind than the ring size skips ahead to the
// oldest retained event and records how many it missed.
package events

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/sheikh-saqib/transactions-service/internal/models"
)

var (
	ErrBusClosed          = errors.New("event bus closed")
	ErrSubscriptionClosed = errors.New("subscription closed")
)

// DefaultCapacity matches the burst size the service was tuned for.
const DefaultCapacity = 1000

type Bus struct {
	mu     sync.Mutex
	ring   []models.Transaction
	head   uint64        // sequence number of the next publish
	signal chan struct{} // closed and replaced on every publish and on Close
	closed bool
	subs   map[*Subscription]struct{}

	published atomic.Uint64
}

// NewBus creates a bus whose ring holds capacity events. capacity <= 0 falls
// back to DefaultCapacity.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		ring:   make([]models.Transaction, capacity),
		signal: make(chan struct{}),
		subs:   make(map[*Subscription]struct{}),
	}
}

// Publish never blocks. When the ring is full the oldest event is overwritten.
// The only error is ErrBusClosed.
func (b *Bus) Publish(tx models.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.ring[b.head%uint64(len(b.ring))] = tx
	b.head++
	b.published.Add(1)

	close(b.signal)
	b.signal = make(chan struct{})
	return nil
}

// Subscribe starts a subscription at the current head: only events published
// from now on are delivered. The subscription is closed when ctx is done.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	s := &Subscription{bus: b, done: make(chan struct{})}

	b.mu.Lock()
	s.next = b.head
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	s.stopMu.Lock()
	s.stop = context.AfterFunc(ctx, s.Close)
	s.stopMu.Unlock()
	return s
}

// Close stops accepting events. Subscribers still receive what is buffered
// for them and then get ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.signal)
}

// Subscribers reports the number of open subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Published reports how many events were accepted since the bus was created
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Subscription is a cursor into the bus. It is meant to be consumed by one
// goroutine; Close may be called from anywhere.
type Subscription struct {
	bus    *Bus
	next   uint64 // guarded by bus.mu
	lagged atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once
	stopMu    sync.Mutex
	stop      func() bool
}

// Next blocks until an event is available, ctx is done, the subscription is
// closed or the bus is closed and drained.
func (s *Subscription) Next(ctx context.Context) (models.Transaction, error) {
	b := s.bus
	for {
		select {
		case <-s.done:
			return models.Transaction{}, ErrSubscriptionClosed
		default:
		}

		b.mu.Lock()
		size := uint64(len(b.ring))
		if b.head > size && s.next < b.head-size {
			oldest := b.head - size
			s.lagged.Add(oldest - s.next)
			s.next = oldest
		}
		if s.next < b.head {
			tx := b.ring[s.next%size]
			s.next++
			b.mu.Unlock()
			return tx, nil
		}
		if b.closed {
			b.mu.Unlock()
			return models.Transaction{}, ErrBusClosed
		}
		wait := b.signal
		b.mu.Unlock()

		select {
		case <-wait:
		case <-s.done:
			return models.Transaction{}, ErrSubscriptionClosed
		case <-ctx.Done():
			return models.Transaction{}, ctx.Err()
		}
	}
}

// All yields events until ctx is done or the bus closes, and closes the
// subscription when iteration stops.
func (s *Subscription) All(ctx context.Context) iter.Seq[models.Transaction] {
	return func(yield func(models.Transaction) bool) {
		defer s.Close()
		for {
			tx, err := s.Next(ctx)
			if err != nil {
				return
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// Lagged reports how many events this subscriber lost to ring overwrites
func (s *Subscription) Lagged() uint64 {
	return s.lagged.Load()
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.stopMu.Lock()
		stop := s.stop
		s.stopMu.Unlock()
		if stop != nil {
			stop()
		}
		close(s.done)
		s.bus.unsubscribe(s)
	})
}
