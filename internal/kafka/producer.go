package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// messageWriter is the subset of *kafka.Writer the producer uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing dashboard mutation events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishPickAdded publishes a pick added event
func (p *Producer) PublishPickAdded(ctx context.Context, ticker string) error {
	return p.publish(ctx, ticker, models.DashboardEvent{
		EventType: models.EventPickAdded,
		Ticker:    ticker,
	})
}

// PublishPickRemoved publishes a pick removed event
func (p *Producer) PublishPickRemoved(ctx context.Context, id int) error {
	return p.publish(ctx, strconv.Itoa(id), models.DashboardEvent{
		EventType: models.EventPickRemoved,
		ID:        id,
	})
}

// PublishPositionAdded publishes a position added event
func (p *Producer) PublishPositionAdded(ctx context.Context, ticker string) error {
	return p.publish(ctx, ticker, models.DashboardEvent{
		EventType: models.EventPositionAdded,
		Ticker:    ticker,
	})
}

// PublishPositionUpdated publishes a position updated event
func (p *Producer) PublishPositionUpdated(ctx context.Context, id int) error {
	return p.publish(ctx, strconv.Itoa(id), models.DashboardEvent{
		EventType: models.EventPositionUpdated,
		ID:        id,
	})
}

// PublishPositionRemoved publishes a position removed event
func (p *Producer) PublishPositionRemoved(ctx context.Context, id int) error {
	return p.publish(ctx, strconv.Itoa(id), models.DashboardEvent{
		EventType: models.EventPositionRemoved,
		ID:        id,
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.DashboardEvent) error {
	event.EventID = uuid.NewString()
	event.Timestamp = p.now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
