package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/grocery-sync/internal/realtime"
)

// Producer writes real-time envelopes to the events topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// PublishEvent pushes one envelope to every connected console. Envelopes
// are keyed by group, falling back to the event name, so updates for one
// delivery stay ordered on a single partition.
func (p *Producer) PublishEvent(ctx context.Context, env realtime.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding %s envelope: %w", env.Event, err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(envelopeKey(env)),
		Value: data,
		Time:  env.Timestamp,
	})
}

func envelopeKey(env realtime.Envelope) string {
	if env.Group != "" {
		return env.Group
	}
	return env.Event
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
