package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

type mockRefresher struct {
	mu     sync.Mutex
	calls  [][]string
	called chan struct{}
}

func (m *mockRefresher) Refresh(resources ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, resources)
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	return 1
}

func (m *mockRefresher) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) CloseCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeCalls
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func eventPayload(t *testing.T, eventType string) []byte {
	t.Helper()
	payload, err := json.Marshal(models.DashboardEvent{
		EventID:   "evt-1",
		EventType: eventType,
		Ticker:    "AAPL",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return payload
}

func TestConsumer_processMessage_refreshesTouchedResources(t *testing.T) {
	a, b := &mockRefresher{}, &mockRefresher{}
	consumer := &Consumer{refreshers: []Refresher{a, b}, logger: discardLogger()}

	require.NoError(t, consumer.processMessage(kafka.Message{Value: eventPayload(t, models.EventPositionUpdated)}))

	want := [][]string{{models.ResourcePositions, models.ResourceTrades}}
	assert.Equal(t, want, a.Calls())
	assert.Equal(t, want, b.Calls())
}

func TestConsumer_processMessage_ignoresUnknownEventTypes(t *testing.T) {
	r := &mockRefresher{}
	consumer := &Consumer{refreshers: []Refresher{r}, logger: discardLogger()}

	require.NoError(t, consumer.processMessage(kafka.Message{Value: eventPayload(t, "STOCK_ADDED")}))
	assert.Empty(t, r.Calls())
}

func TestConsumer_processMessage_invalidJSON(t *testing.T) {
	r := &mockRefresher{}
	consumer := &Consumer{refreshers: []Refresher{r}, logger: discardLogger()}

	err := consumer.processMessage(kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
	assert.Empty(t, r.Calls())
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	r := &mockRefresher{called: make(chan struct{}, 1)}
	reader := newMockReader("dashboard-events", 2)
	consumer := &Consumer{reader: reader, refreshers: []Refresher{r}, logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- kafka.Message{Value: []byte("garbage")}
	reader.msgs <- kafka.Message{Value: eventPayload(t, models.EventPickAdded)}

	select {
	case <-r.called:
		// processed
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	assert.Equal(t, [][]string{{models.ResourcePicks}}, r.Calls())
	assert.Equal(t, 1, reader.CloseCalls())
}
