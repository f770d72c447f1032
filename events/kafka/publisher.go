// Package kafka publishes ledger events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/warp/ledger-engine/events"
	"github.com/warp/ledger-engine/ledger"
)

// DefaultTopic receives document.submitted and document.cancelled events.
const DefaultTopic = "ledger_events"

// writer is the part of *kafka.Writer the publisher uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per event. Messages are keyed by document
// reference so that events of one document stay ordered in a partition.
type Publisher struct {
	writer writer
}

var _ ledger.EventPublisher = (*Publisher)(nil)

// NewPublisher connects to brokers. An empty topic uses DefaultTopic.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, evt ledger.Event) error {
	data, err := json.Marshal(events.NewMessage(evt))
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Type, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.Reference.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(evt.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s event for %s: %w", evt.Type, evt.Reference, err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
