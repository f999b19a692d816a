package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	interfaces "github.com/sheikh-saqib/points-ledger/internal/interfaces"
	"github.com/sheikh-saqib/points-ledger/internal/models/events"
)

// Config describes where ledger events are written.
type Config struct {
	Brokers []string
	// Topic, when set, receives every event regardless of its own topic.
	Topic       string
	Compression string // none, gzip, snappy, lz4 or zstd
}

// Publisher writes ledger events to Kafka, keyed by payer.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

// NewPublisher builds a writer for cfg. No connection is made until the first publish.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	codec, err := ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			Compression:            codec,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		topic: strings.TrimSpace(cfg.Topic),
	}, nil
}

// ParseCompression maps a codec name onto the kafka-go compression setting.
func ParseCompression(name string) (kafka.Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("kafka: unknown compression %q", name)
	}
}

// Publish encodes event as JSON and writes it synchronously.
func (p *Publisher) Publish(ctx context.Context, topic string, event any) error {
	msg, err := buildMessage(p.topic, topic, event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessage(override, topic string, event any) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode event: %w", err)
	}
	target := topic
	if override != "" {
		target = override
	}
	return kafka.Message{
		Topic: target,
		Key:   []byte(messageKey(event)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(topic)},
		},
	}, nil
}

// messageKey keeps events for one payer on one partition.
func messageKey(event any) string {
	switch e := event.(type) {
	case events.TransactionAdded:
		return e.Payer
	case *events.TransactionAdded:
		return e.Payer
	default:
		return "spend"
	}
}

var _ interfaces.EventPublisher = (*Publisher)(nil)
