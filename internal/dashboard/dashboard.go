// Package dashboard composes the views of one dashboard page into named
// slots and fans out change notifications to subscribers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
	"github.com/trogers1052/stock-sniper-dashboard/internal/poller"
	"github.com/trogers1052/stock-sniper-dashboard/internal/view"
)

// ErrUnknownSlot is returned for a slot name the dashboard does not have
var ErrUnknownSlot = errors.New("unknown slot")

// subscriberBuffer is the per-subscriber notification backlog
const subscriberBuffer = 32

// Slot describes one view in the layout
type Slot struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Type string `json:"type,omitempty"`
}

// DefaultLayout is the standard dashboard page
var DefaultLayout = []Slot{
	{Name: "ai-picks", Kind: view.KindPicks, Type: view.PicksAI},
	{Name: "manual-picks", Kind: view.KindPicks, Type: view.PicksManual},
	{Name: "long-positions", Kind: view.KindPositions, Type: models.StatusLong},
	{Name: "short-positions", Kind: view.KindPositions, Type: models.StatusShort},
	{Name: "closed-positions", Kind: view.KindPositions, Type: models.StatusClosed},
	{Name: "sectors", Kind: view.KindSectors},
}

// Options configures a Dashboard
type Options struct {
	Layout   []Slot
	Sectors  []models.Sector
	Interval time.Duration
	Clock    poller.Clock
	Logger   *slog.Logger
}

// Dashboard is an ordered set of views sharing one data source
type Dashboard struct {
	logger *slog.Logger
	views  []view.View
	bySlot map[string]view.View

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// New builds the views of the layout. Views start unmounted.
func New(src view.Source, opts Options) (*Dashboard, error) {
	layout := opts.Layout
	if len(layout) == 0 {
		layout = DefaultLayout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dashboard{
		logger: logger,
		bySlot: make(map[string]view.View, len(layout)),
		subs:   make(map[chan string]struct{}),
	}
	vopts := view.Options{
		Interval: opts.Interval,
		Clock:    opts.Clock,
		Logger:   logger,
		OnChange: d.notify,
	}

	for _, s := range layout {
		if _, dup := d.bySlot[s.Name]; dup {
			return nil, fmt.Errorf("duplicate slot %q", s.Name)
		}
		v, err := newView(s, src, opts.Sectors, vopts)
		if err != nil {
			return nil, fmt.Errorf("failed to create slot %q: %w", s.Name, err)
		}
		d.views = append(d.views, v)
		d.bySlot[s.Name] = v
	}
	return d, nil
}

func newView(s Slot, src view.Source, sectors []models.Sector, opts view.Options) (view.View, error) {
	switch s.Kind {
	case view.KindPicks:
		return view.NewPicksView(s.Name, s.Type, src, opts)
	case view.KindPositions:
		return view.NewPositionsView(s.Name, s.Type, src, opts)
	case view.KindSectors:
		return view.NewSectorsView(s.Name, sectors, src, opts), nil
	default:
		return nil, fmt.Errorf("unknown view kind %q", s.Kind)
	}
}

// Mount mounts every view. Each view starts its own poller.
func (d *Dashboard) Mount(ctx context.Context) {
	for _, v := range d.views {
		v.Mount(ctx)
	}
	d.logger.Debug("dashboard: mounted", slog.Int("views", len(d.views)))
}

// Unmount stops every view and closes all subscriptions
func (d *Dashboard) Unmount() {
	for _, v := range d.views {
		v.Unmount()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		delete(d.subs, ch)
		close(ch)
	}
	d.logger.Debug("dashboard: unmounted")
}

// Slots returns the current layout, including each view's present type
func (d *Dashboard) Slots() []Slot {
	out := make([]Slot, 0, len(d.views))
	for _, v := range d.views {
		out = append(out, Slot{Name: v.Slot(), Kind: v.Kind(), Type: v.Type()})
	}
	return out
}

// Tables renders every slot in layout order
func (d *Dashboard) Tables() []view.Table {
	out := make([]view.Table, 0, len(d.views))
	for _, v := range d.views {
		out = append(out, v.Render())
	}
	return out
}

// Table renders one slot
func (d *Dashboard) Table(slot string) (view.Table, error) {
	v, ok := d.bySlot[slot]
	if !ok {
		return view.Table{}, fmt.Errorf("%w %q", ErrUnknownSlot, slot)
	}
	return v.Render(), nil
}

// SetType changes the discriminator of one slot's view
func (d *Dashboard) SetType(slot, typ string) error {
	v, ok := d.bySlot[slot]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownSlot, slot)
	}
	return v.SetType(typ)
}

// Refresh triggers an immediate fetch of the given resources in every
// mounted view that polls them. Timers are left alone. It returns how many
// views fetched.
func (d *Dashboard) Refresh(resources ...string) int {
	n := 0
	for _, v := range d.views {
		if v.Refresh(resources...) {
			n++
		}
	}
	return n
}

// Subscribe returns a channel receiving the slot name of every view whose
// snapshot changed, and a function that cancels the subscription. A
// subscriber that falls behind misses notifications rather than blocking
// the views.
func (d *Dashboard) Subscribe() (<-chan string, func()) {
	ch := make(chan string, subscriberBuffer)

	d.mu.Lock()
	d.subs[ch] = struct{}{}
	d.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			if _, ok := d.subs[ch]; ok {
				delete(d.subs, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (d *Dashboard) notify(slot string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for ch := range d.subs {
		select {
		case ch <- slot:
		default:
			d.logger.Debug("dashboard: subscriber behind, dropping notification", slog.String("slot", slot))
		}
	}
}
