package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ehson1111/chocoberry-bot/models"
	"github.com/segmentio/kafka-go"
)

const EventOrderCommitted = "order.committed"

// Producer publishes order events. Messages are keyed by checkout id so all
// events of one checkout land on the same partition.
type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("no kafka topic configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
		// WriteMessages is synchronous; the 1s default would hold every publish.
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

func (p *Producer) PublishOrderCommitted(ctx context.Context, event models.OrderCommittedEvent) error {
	if event.Event == "" {
		event.Event = EventOrderCommitted
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.CheckoutID),
		Value: data,
		Time:  event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
