package interfaces

import "context"

// EventPublisher ships a committed-transaction event to an external broker.
// key selects the partition, so events sharing a key stay ordered.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}
