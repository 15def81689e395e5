package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

type mockWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func newTestProducer(w *mockWriter) *Producer {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &Producer{writer: w, topic: "dashboard-events", now: func() time.Time { return fixed }}
}

func decodeEvent(t *testing.T, msg kafka.Message) models.DashboardEvent {
	t.Helper()
	var event models.DashboardEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return event
}

func TestProducer_PublishEvents(t *testing.T) {
	w := &mockWriter{}
	p := newTestProducer(w)
	ctx := context.Background()

	require.NoError(t, p.PublishPickAdded(ctx, "AAPL"))
	require.NoError(t, p.PublishPickRemoved(ctx, 4))
	require.NoError(t, p.PublishPositionAdded(ctx, "TSLA"))
	require.NoError(t, p.PublishPositionUpdated(ctx, 7))
	require.NoError(t, p.PublishPositionRemoved(ctx, 8))

	require.Len(t, w.msgs, 5)

	tests := []struct {
		key       string
		eventType string
		ticker    string
		id        int
	}{
		{"AAPL", models.EventPickAdded, "AAPL", 0},
		{"4", models.EventPickRemoved, "", 4},
		{"TSLA", models.EventPositionAdded, "TSLA", 0},
		{"7", models.EventPositionUpdated, "", 7},
		{"8", models.EventPositionRemoved, "", 8},
	}
	for i, tt := range tests {
		msg := w.msgs[i]
		event := decodeEvent(t, msg)

		assert.Equal(t, tt.key, string(msg.Key))
		assert.Equal(t, tt.eventType, event.EventType)
		assert.Equal(t, tt.ticker, event.Ticker)
		assert.Equal(t, tt.id, event.ID)
		assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), event.Timestamp)

		_, err := uuid.Parse(event.EventID)
		assert.NoError(t, err)
	}

	assert.NotEqual(t, decodeEvent(t, w.msgs[0]).EventID, decodeEvent(t, w.msgs[1]).EventID)
}

func TestProducer_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker unavailable")}
	p := newTestProducer(w)

	err := p.PublishPositionAdded(context.Background(), "NVDA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write message to kafka")
	assert.ErrorIs(t, err, w.err)
}

func TestProducer_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, newTestProducer(w).Close())
	assert.True(t, w.closed)
}
