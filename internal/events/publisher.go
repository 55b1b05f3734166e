package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

// Publisher sends run-completed events to a kafka topic, keyed by output
// layer so per-layer ordering holds.
type Publisher struct {
	prod  sarama.SyncProducer
	topic string
}

func New(brokers []string, topic, clientID string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &Publisher{prod: prod, topic: topic}, nil
}

// NewFromProducer wraps an existing producer; used by tests.
func NewFromProducer(prod sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{prod: prod, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Layer),
		Value: sarama.ByteEncoder(b),
	}
	if _, _, err := p.prod.SendMessage(msg); err != nil {
		return fmt.Errorf("send event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.prod.Close()
}
