package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"

	"rentai-booking-backend/internal/domain"
	"rentai-booking-backend/internal/logger"
)

// Publisher delivers committed outbox events to downstream consumers
// (notifications, refund tooling, search sync).
type Publisher interface {
	Publish(ctx context.Context, ev domain.OutboxEvent) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
}

type KafkaPublisher struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer MessageWriter, settings BreakerSettings) *KafkaPublisher {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &KafkaPublisher{writer: writer, breaker: cb}
}

// Publish keys messages by rental id so one rental's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Time:  ev.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "event_type", Value: []byte(ev.EventType)},
		},
	}

	logger.ExternalServiceCall("kafka", "WriteMessages", "event_id", ev.ID, "event_type", ev.EventType)
	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	logger.ExternalServiceResult("kafka", "WriteMessages", err, "event_id", ev.ID)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// ErrUnavailable means the breaker is refusing calls; the relay should stop the
// current batch and retry on its next run.
var ErrUnavailable = errors.New("event publisher unavailable")

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	logger.InfoContext(ctx, "Rental event", "event_id", ev.ID, "event_type", ev.EventType, "rental_id", ev.AggregateID, "payload", string(ev.Payload))
	return nil
}

func (LogPublisher) Close() error { return nil }
