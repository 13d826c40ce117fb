package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
	interfaces "github.com/sheikh-saqib/transactions-service/internal/interfaces"
)

// DefaultTopic is where committed transactions are relayed.
const DefaultTopic = "transaction_completed"

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a writer for brokers. The topic is chosen per message,
// so one publisher can serve several topics.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
	}
}

// Publish writes event as JSON. Messages with the same key land on the same
// partition, which keeps one account's transactions in order.
func (p *Publisher) Publish(ctx context.Context, topic, key string, event any) error {
	msg, err := newMessage(ctx, topic, key, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// newMessage builds the Kafka message for event. The correlation id of ctx,
// if any, rides along as a header.
func newMessage(ctx context.Context, topic, key string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}
	if id := correlation.FromContext(ctx); id != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: correlation.Header, Value: []byte(id)})
	}
	return msg, nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
