// Package view binds polled snapshots to rendered tables. Each view owns its
// snapshots and its Poller; nothing is shared between views.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/format"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
	"github.com/trogers1052/stock-sniper-dashboard/internal/poller"
)

// ErrInvalidType is returned by SetType for a discriminator the view does
// not support
var ErrInvalidType = errors.New("invalid view type")

// Source is the read side of the data service
type Source interface {
	Picks(ctx context.Context) ([]models.Pick, error)
	Positions(ctx context.Context) ([]models.Position, error)
	Trades(ctx context.Context) ([]models.Trade, error)
	Sectors(ctx context.Context, tickers []string) (map[string]models.SectorQuote, error)
}

// View is one mounted table
type View interface {
	Slot() string
	Kind() string
	Type() string
	SetType(t string) error
	Mount(ctx context.Context)
	Unmount()
	Mounted() bool
	Refresh(resources ...string) bool
	Render() Table
}

// Cell is one rendered value
type Cell struct {
	Text  string       `json:"text"`
	Trend format.Trend `json:"trend,omitempty"`
}

// Row is one rendered row. A sentinel row stands in for an empty table.
type Row struct {
	Cells    []Cell `json:"cells"`
	Sentinel bool   `json:"sentinel,omitempty"`
}

// Table is the rendered state of a view
type Table struct {
	Slot      string    `json:"slot"`
	Kind      string    `json:"kind"`
	Type      string    `json:"type,omitempty"`
	Title     string    `json:"title"`
	Columns   []string  `json:"columns"`
	Rows      []Row     `json:"rows"`
	Empty     bool      `json:"empty"`
	Stale     bool      `json:"stale"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Options carries the dependencies shared by every view constructor
type Options struct {
	Interval time.Duration
	Clock    poller.Clock
	Logger   *slog.Logger
	// OnChange is called after a snapshot of the view changes. It runs on a
	// fetch goroutine and must not block.
	OnChange func(slot string)
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = poller.DefaultInterval
	}
	if o.Clock == nil {
		o.Clock = poller.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.OnChange == nil {
		o.OnChange = func(string) {}
	}
	return o
}

// Snapshot is the latest known collection for one resource. A failed fetch
// records the error and keeps the previous items.
type Snapshot[T any] struct {
	Items     []T
	Loaded    bool
	UpdatedAt time.Time
	Err       error
}

// Apply folds a fetch result into the snapshot
func (s *Snapshot[T]) Apply(r client.Result[[]T]) {
	if !r.OK() {
		s.Err = r.Err
		return
	}
	s.Items = r.Value
	s.Loaded = true
	s.UpdatedAt = r.FetchedAt
	s.Err = nil
}

// binder holds the lifecycle state common to all views
type binder struct {
	slot   string
	opts   Options
	poller *poller.Poller

	// life serializes Mount, Unmount and SetType
	life sync.Mutex

	mu      sync.RWMutex
	mounted bool
	ctx     context.Context
}

func newBinder(slot string, opts Options) *binder {
	opts = opts.withDefaults()
	return &binder{
		slot: slot,
		opts: opts,
		poller: poller.New(opts.Interval,
			poller.WithClock(opts.Clock),
			poller.WithLogger(opts.Logger.With(slog.String("slot", slot))),
		),
	}
}

func (b *binder) Slot() string { return b.slot }

func (b *binder) Mounted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.mounted
}

func (b *binder) Refresh(resources ...string) bool {
	return b.poller.Refresh(resources...)
}

func (b *binder) changed() {
	b.opts.OnChange(b.slot)
}

// resource adapts a typed fetch into a poller.Resource whose apply stores
// the Result through store
func resource[T any](name string, clock poller.Clock, fetch func(context.Context) (T, error), store func(client.Result[T])) poller.Resource {
	return poller.Resource{
		Name: name,
		Fetch: func(ctx context.Context) (func(), error) {
			r := client.Do(ctx, clock.Now, fetch)
			return func() { store(r) }, r.Err
		},
	}
}

func sentinelRow(columns int, message string) Row {
	cells := make([]Cell, columns)
	if columns > 0 {
		cells[0] = Cell{Text: message}
	}
	return Row{Cells: cells, Sentinel: true}
}

// finish fills in the empty-state and staleness fields of t
func finish(t Table, emptyMessage string, errs []error, updated ...time.Time) Table {
	if len(t.Rows) == 0 {
		t.Empty = true
		t.Rows = []Row{sentinelRow(len(t.Columns), emptyMessage)}
	}

	var reasons []string
	for _, err := range errs {
		if err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	if len(reasons) > 0 {
		t.Stale = true
		t.LastError = strings.Join(reasons, "; ")
	}

	for _, u := range updated {
		if u.After(t.UpdatedAt) {
			t.UpdatedAt = u
		}
	}
	return t
}

func invalidType(kind, t string) error {
	return fmt.Errorf("%w %q for %s view", ErrInvalidType, t, kind)
}
