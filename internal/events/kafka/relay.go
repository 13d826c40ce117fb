package kafka

import (
	"context"
	"log/slog"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
	"github.com/sheikh-saqib/transactions-service/internal/events"
	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
	modelevents "github.com/sheikh-saqib/transactions-service/internal/models/events"
)

// Relay is a bus subscriber that forwards every committed transaction to an
// EventPublisher. It is one more live subscriber: it sees only what is
// published after Run starts.
type Relay struct {
	bus       *events.Bus
	publisher interfaces.EventPublisher
	topic     string
}

func NewRelay(bus *events.Bus, publisher interfaces.EventPublisher, topic string) *Relay {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Relay{bus: bus, publisher: publisher, topic: topic}
}

// Run forwards events until ctx is done or the bus is closed. Failed
// publishes are logged and skipped; they never stop the relay.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.bus.Subscribe(ctx)
	defer sub.Close()

	slog.InfoContext(ctx, "kafka relay started", "topic", r.topic)
	for tx := range sub.All(ctx) {
		// log and publish under the id of the request that committed tx
		txCtx := ctx
		if tx.CorrelationID != "" {
			txCtx = correlation.WithID(ctx, tx.CorrelationID)
		}
		event := modelevents.NewTransactionCompleted(tx)
		if err := r.publisher.Publish(txCtx, r.topic, tx.AccountID, event); err != nil {
			slog.ErrorContext(txCtx, "kafka relay: publish failed",
				"transaction_id", tx.ID, "error", err)
		}
	}

	if lagged := sub.Lagged(); lagged > 0 {
		slog.WarnContext(ctx, "kafka relay fell behind the event bus", "missed", lagged)
	}
	slog.InfoContext(ctx, "kafka relay stopped")
	return ctx.Err()
}
