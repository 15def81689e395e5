package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// Refresher fetches the named resources out of band. Dashboards and live
// session hubs implement it.
type Refresher interface {
	Refresh(resources ...string) int
}

// messageReader is the subset of *kafka.Reader the consumer uses
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer reads dashboard events and refreshes the views showing the
// resources each event touched, so a mutation appears before the next tick
type Consumer struct {
	reader     messageReader
	refreshers []Refresher
	logger     *slog.Logger
}

// NewConsumer creates a new Kafka consumer for dashboard events
func NewConsumer(brokers []string, topic, groupID string, logger *slog.Logger, refreshers ...Refresher) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		reader:     reader,
		refreshers: refreshers,
		logger:     logger,
	}
}

// Start begins consuming messages from Kafka. It returns when ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka: consumer started", slog.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("kafka: consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.logger.Warn("kafka: read failed", slog.String("error", err.Error()))
				continue
			}

			if err := c.processMessage(msg); err != nil {
				c.logger.Warn("kafka: process failed",
					slog.Int64("offset", msg.Offset),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.DashboardEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal dashboard event: %w", err)
	}

	resources := event.Resources()
	if len(resources) == 0 {
		c.logger.Debug("kafka: ignoring event", slog.String("event_type", event.EventType))
		return nil
	}

	refreshed := 0
	for _, r := range c.refreshers {
		refreshed += r.Refresh(resources...)
	}

	c.logger.Debug("kafka: refreshed views",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.Int("views", refreshed),
	)
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
