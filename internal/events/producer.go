package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps the Kafka writer used by the relay.
type Producer struct {
	w *kafka.Writer
}

// NewProducer configures the writer for reliability over throughput:
// - Hash + key: events for one order land on one partition, in order.
// - RequireAll: wait for ISR acks before reporting success.
// - MaxAttempts/timeouts bound retries.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (p *Producer) Close() error { return p.w.Close() }

// Publish writes one event, keyed by order reference.
func (p *Producer) Publish(ctx context.Context, e OrderEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Reference),
		Value: b,
	})
}
