package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// DefaultTopic receives declaration lifecycle events
const DefaultTopic = "distribution_events"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes distribution events to Kafka. Messages are keyed by case
// id so that one case's events stay in order on a single partition.
type Publisher struct {
	writer messageWriter
	logger *logger.Logger
}

var _ distribution.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher for the given brokers and topic
func NewPublisher(brokers []string, topic string, log *logger.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 10 * time.Second,
		},
		logger: log.WithField("component", "kafka_publisher"),
	}
}

// Publish implements distribution.EventPublisher
func (p *Publisher) Publish(ctx context.Context, event distribution.Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("event published",
		"type", string(event.Type),
		"case_id", event.CaseID.String(),
		"declaration_id", event.DeclarationID.String(),
	)
	return nil
}

// Close flushes pending writes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func encode(event distribution.Event) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.CaseID.String()),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil
}
