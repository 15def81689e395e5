package poller

import (
	"sync"
	"time"
)

// Clock supplies the current time and repeating tickers
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the poller needs
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// RealClock is backed by the time package
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualClock only moves when Advance is called. Each period boundary
// crossed by Advance is delivered to every live ticker, one at a time, and
// Advance blocks until the ticker's owner has received it.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

// NewManualClock creates a ManualClock starting at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) NewTicker(d time.Duration) Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTicker{
		period: d,
		next:   m.now.Add(d),
		c:      make(chan time.Time),
		stop:   make(chan struct{}),
	}
	m.tickers = append(m.tickers, t)
	return t
}

// Advance moves the clock forward by d, firing tickers as it goes
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t, at := m.nextFire(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = at
		t.next = at.Add(t.period)
		m.mu.Unlock()

		select {
		case t.c <- at:
		case <-t.stop:
		}
	}
}

// Tickers returns how many tickers are currently live
func (m *ManualClock) Tickers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tickers {
		if !t.stopped() {
			n++
		}
	}
	return n
}

func (m *ManualClock) nextFire(target time.Time) (*manualTicker, time.Time) {
	var (
		best *manualTicker
		at   time.Time
	)
	live := m.tickers[:0]
	for _, t := range m.tickers {
		if t.stopped() {
			continue
		}
		live = append(live, t)
		if t.next.After(target) {
			continue
		}
		if best == nil || t.next.Before(at) {
			best, at = t, t.next
		}
	}
	m.tickers = live
	return best, at
}

type manualTicker struct {
	period time.Duration
	next   time.Time
	c      chan time.Time
	stop   chan struct{}
	once   sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stop) })
}

func (t *manualTicker) stopped() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}
