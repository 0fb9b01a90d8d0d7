// Package events publishes marketplace notifications to an external stream
// so that other systems can observe sales and wish matches.
package events

import (
	"context"
	"encoding/json"
	"time"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/models"

	"github.com/segmentio/kafka-go"
)

// Publisher accepts notifications for the event stream.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, models.Notification) error { return nil }
func (Nop) Close() error                                         { return nil }

// KafkaPublisher writes one message per notification, keyed by recipient so
// a consumer sees each customer's events in order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Log.Warnw("Dropped market events", "count", len(messages), "error", err)
				}
			},
		},
	}
}

// New returns a Kafka publisher when brokers are configured, Nop otherwise.
func New(brokers []string, topic string) Publisher {
	if len(brokers) == 0 {
		return Nop{}
	}
	logger.Log.Infow("Publishing market events", "brokers", brokers, "topic", topic)
	return NewKafkaPublisher(brokers, topic)
}

func (p *KafkaPublisher) Publish(ctx context.Context, n models.Notification) error {
	msg, err := Encode(n)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Encode turns n into the wire message used on the stream.
func Encode(n models.Notification) (kafka.Message, error) {
	value, err := json.Marshal(n)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(n.Recipient),
		Value: value,
		Time:  n.At,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
			{Key: "id", Value: []byte(n.ID)},
		},
	}, nil
}
