// Package poller drives periodic refresh for a single view. A Poller is
// either idle or active; while active it owns exactly one ticker.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the refresh period used when none is configured
const DefaultInterval = 30 * time.Second

// Resource is one independently fetched collection. Fetch performs the
// network round trip and returns a function that applies the outcome to the
// owning view; apply is called only if the poll that issued the fetch is
// still current. A non-nil error is logged, and apply still runs so the view
// can record staleness. apply runs with the Poller locked and must not call
// back into it.
type Resource struct {
	Name  string
	Fetch func(ctx context.Context) (apply func(), err error)
}

// Poller repeatedly fetches a set of resources at a fixed interval
type Poller struct {
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	mu        sync.Mutex
	active    bool
	gen       uint64
	cancel    context.CancelFunc
	ticker    Ticker
	ctx       context.Context
	resources []Resource
}

// Option configures a Poller
type Option func(*Poller)

// WithClock replaces the real clock, mainly for tests
func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

// WithLogger sets the logger for fetch failures
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) { p.logger = l }
}

// New creates an idle Poller
func New(interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		interval: interval,
		clock:    RealClock{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start fetches every resource immediately and then once per interval until
// Stop is called or ctx is done. Calling Start on an active Poller replaces
// its resources: the old ticker is stopped before the new one is armed and
// responses from the old generation are discarded.
func (p *Poller) Start(ctx context.Context, resources ...Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	runCtx, cancel := context.WithCancel(ctx)
	p.gen++
	p.active = true
	p.ctx = runCtx
	p.cancel = cancel
	p.resources = append([]Resource(nil), resources...)
	p.ticker = p.clock.NewTicker(p.interval)

	gen := p.gen
	p.tickLocked(gen, p.resources)
	go p.loop(runCtx, gen, p.ticker)
}

// Stop cancels the ticker and in-flight fetches. Once Stop returns no
// response from an earlier fetch will be applied.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Refresh fetches the named resources now, outside the regular schedule.
// It does nothing when the Poller is idle or polls none of the names.
func (p *Poller) Refresh(names ...string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active {
		return false
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var selected []Resource
	for _, r := range p.resources {
		if want[r.Name] {
			selected = append(selected, r)
		}
	}
	if len(selected) == 0 {
		return false
	}
	p.tickLocked(p.gen, selected)
	return true
}

// Active reports whether the Poller is running
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Polls reports whether the active Poller fetches the named resource
func (p *Poller) Polls(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return false
	}
	for _, r := range p.resources {
		if r.Name == name {
			return true
		}
	}
	return false
}

func (p *Poller) stopLocked() {
	if !p.active {
		return
	}
	p.ticker.Stop()
	p.cancel()
	p.gen++
	p.active = false
	p.ticker = nil
	p.cancel = nil
	p.ctx = nil
	p.resources = nil
}

func (p *Poller) loop(ctx context.Context, gen uint64, ticker Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			p.mu.Lock()
			if !p.active || p.gen != gen {
				p.mu.Unlock()
				return
			}
			p.tickLocked(gen, p.resources)
			p.mu.Unlock()
		}
	}
}

// tickLocked issues one fetch per resource. Fetches run concurrently and
// independently; a failure in one does not affect the others.
func (p *Poller) tickLocked(gen uint64, resources []Resource) {
	ctx := p.ctx
	for _, r := range resources {
		go p.fetch(ctx, gen, r)
	}
}

func (p *Poller) fetch(ctx context.Context, gen uint64, r Resource) {
	apply, err := r.Fetch(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.active || p.gen != gen {
		return
	}
	if err != nil {
		p.logger.Warn("poller: fetch failed",
			slog.String("resource", r.Name),
			slog.String("error", err.Error()),
		)
	}
	if apply != nil {
		apply()
	}
}
