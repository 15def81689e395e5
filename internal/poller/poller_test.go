package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const period = 30 * time.Second

// counter records fetches and applies per resource
type counter struct {
	mu      sync.Mutex
	fetches map[string]int
	applies map[string]int
}

func newCounter() *counter {
	return &counter{fetches: map[string]int{}, applies: map[string]int{}}
}

func (c *counter) resource(name string, err error) Resource {
	return Resource{
		Name: name,
		Fetch: func(ctx context.Context) (func(), error) {
			c.mu.Lock()
			c.fetches[name]++
			c.mu.Unlock()
			return func() {
				c.mu.Lock()
				c.applies[name]++
				c.mu.Unlock()
			}, err
		},
	}
}

func (c *counter) Fetches(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches[name]
}

func (c *counter) Applies(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applies[name]
}

func waitFor(t *testing.T, want int, got func() int) {
	t.Helper()
	require.Eventually(t, func() bool { return got() == want }, 2*time.Second, 5*time.Millisecond,
		"expected %d, last saw %d", want, got())
}

func newTestPoller(clock *ManualClock) *Poller {
	return New(period, WithClock(clock))
}

func TestPoller_StartFetchesImmediately(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	p.Start(context.Background(), c.resource("picks", nil), c.resource("positions", nil))
	defer p.Stop()

	waitFor(t, 1, func() int { return c.Applies("picks") })
	waitFor(t, 1, func() int { return c.Applies("positions") })
	assert.True(t, p.Active())
	assert.Equal(t, 1, clock.Tickers())
}

func TestPoller_OneFetchPerResourcePerTick(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	p.Start(context.Background(), c.resource("picks", nil), c.resource("sectors", nil))
	defer p.Stop()
	waitFor(t, 1, func() int { return c.Fetches("picks") })
	waitFor(t, 1, func() int { return c.Fetches("sectors") })

	clock.Advance(2 * period)

	waitFor(t, 3, func() int { return c.Fetches("picks") })
	waitFor(t, 3, func() int { return c.Fetches("sectors") })

	// No drift or double fire: half a period later nothing new happens.
	clock.Advance(period / 2)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, c.Fetches("picks"))
	assert.Equal(t, 3, c.Fetches("sectors"))
}

func TestPoller_FailureIsIsolated(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	p.Start(context.Background(),
		c.resource("positions", errors.New("connection refused")),
		c.resource("picks", nil),
	)
	defer p.Stop()

	clock.Advance(period)

	waitFor(t, 2, func() int { return c.Applies("picks") })
	waitFor(t, 2, func() int { return c.Applies("positions") })
}

func TestPoller_StopHaltsTicks(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	p.Start(context.Background(), c.resource("picks", nil))
	waitFor(t, 1, func() int { return c.Fetches("picks") })

	p.Stop()
	assert.False(t, p.Active())
	assert.Equal(t, 0, clock.Tickers())

	clock.Advance(3 * period)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.Fetches("picks"))

	// Stop is idempotent.
	p.Stop()
}

func TestPoller_RestartKeepsSingleTicker(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	p.Start(context.Background(), c.resource("positions", nil))
	p.Start(context.Background(), c.resource("positions", nil), c.resource("trades", nil))
	defer p.Stop()

	assert.Equal(t, 1, clock.Tickers(), "at most one active ticker per poller")
	assert.True(t, p.Polls("trades"))

	waitFor(t, 1, func() int { return c.Fetches("trades") })
	clock.Advance(period)
	waitFor(t, 2, func() int { return c.Fetches("trades") })
	waitFor(t, 3, func() int { return c.Fetches("positions") })
}

func TestPoller_SuppressesResponsesAfterStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)

	release := make(chan struct{})
	started := make(chan struct{})
	var mu sync.Mutex
	applied := false

	p.Start(context.Background(), Resource{
		Name: "positions",
		Fetch: func(ctx context.Context) (func(), error) {
			close(started)
			<-release
			return func() {
				mu.Lock()
				applied = true
				mu.Unlock()
			}, nil
		},
	})

	<-started
	p.Stop()
	close(release)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, applied, "a response resolving after Stop must not be applied")
}

func TestPoller_SuppressesResponsesFromPreviousGeneration(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)

	release := make(chan struct{})
	var mu sync.Mutex
	var applied []string

	slow := Resource{
		Name: "positions",
		Fetch: func(ctx context.Context) (func(), error) {
			<-release
			return func() {
				mu.Lock()
				applied = append(applied, "old")
				mu.Unlock()
			}, nil
		},
	}
	fast := Resource{
		Name: "positions",
		Fetch: func(ctx context.Context) (func(), error) {
			return func() {
				mu.Lock()
				applied = append(applied, "new")
				mu.Unlock()
			}, nil
		},
	}

	p.Start(context.Background(), slow)
	p.Start(context.Background(), fast)
	defer p.Stop()
	close(release)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(applied) == 1
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"new"}, applied)
}

func TestPoller_CancelsInFlightFetchOnStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)

	cancelled := make(chan struct{})
	p.Start(context.Background(), Resource{
		Name: "trades",
		Fetch: func(ctx context.Context) (func(), error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	})
	p.Stop()

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight fetch was not cancelled")
	}
}

func TestPoller_Refresh(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	assert.False(t, p.Refresh("picks"), "idle poller does not refresh")

	p.Start(context.Background(), c.resource("picks", nil), c.resource("positions", nil))
	defer p.Stop()
	waitFor(t, 1, func() int { return c.Fetches("picks") })
	waitFor(t, 1, func() int { return c.Fetches("positions") })

	assert.True(t, p.Refresh("picks"))
	assert.False(t, p.Refresh("sectors"))

	waitFor(t, 2, func() int { return c.Fetches("picks") })
	assert.Equal(t, 1, c.Fetches("positions"))
	assert.Equal(t, 1, clock.Tickers(), "refresh must not arm another ticker")
}

func TestPoller_ParentContextCancelStopsLoop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	p := newTestPoller(clock)
	c := newCounter()

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx, c.resource("picks", nil))
	waitFor(t, 1, func() int { return c.Fetches("picks") })

	cancel()
	require.Eventually(t, func() bool { return clock.Tickers() == 0 }, time.Second, 5*time.Millisecond)
	p.Stop()
}
