package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/api-sage/pin-ledger/src/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Publisher writes TransactionCompleted events keyed by account username,
// so every event for one account lands on the same partition in order.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, event domain.TransactionCompleted) error {
	msg, err := encodeMessage(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encodeMessage(event domain.TransactionCompleted) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.Username),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
			{Key: "reference", Value: []byte(event.Reference)},
		},
	}, nil
}

var _ domain.EventPublisher = (*Publisher)(nil)
