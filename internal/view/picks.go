package view

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/format"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// Picks view types
const (
	PicksAI     = "ai"
	PicksManual = "manual"
)

// KindPicks identifies picks views
const KindPicks = "picks"

// PicksView shows picks from one source, most mentioned first
type PicksView struct {
	*binder
	src Source

	typ   string
	picks Snapshot[models.Pick]
}

// NewPicksView creates an unmounted picks view
func NewPicksView(slot, typ string, src Source, opts Options) (*PicksView, error) {
	if _, ok := pickSource(typ); !ok {
		return nil, invalidType(KindPicks, typ)
	}
	return &PicksView{
		binder: newBinder(slot, opts),
		src:    src,
		typ:    typ,
	}, nil
}

func pickSource(typ string) (string, bool) {
	switch typ {
	case PicksAI:
		return models.SourceAI, true
	case PicksManual:
		return models.SourceManual, true
	default:
		return "", false
	}
}

func (v *PicksView) Kind() string { return KindPicks }

func (v *PicksView) Type() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.typ
}

// SetType switches between AI and manual picks. Both come from the same
// resource, so the poller keeps running and only the filter changes.
func (v *PicksView) SetType(typ string) error {
	if _, ok := pickSource(typ); !ok {
		return invalidType(KindPicks, typ)
	}

	v.mu.Lock()
	changed := v.typ != typ
	v.typ = typ
	v.mu.Unlock()

	if changed {
		v.changed()
	}
	return nil
}

func (v *PicksView) Mount(ctx context.Context) {
	v.life.Lock()
	defer v.life.Unlock()

	v.mu.Lock()
	v.mounted = true
	v.ctx = ctx
	v.mu.Unlock()

	v.poller.Start(ctx,
		resource(models.ResourcePicks, v.opts.Clock, v.src.Picks, v.storePicks),
	)
}

func (v *PicksView) Unmount() {
	v.life.Lock()
	defer v.life.Unlock()

	v.poller.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = false
	v.ctx = nil
	v.picks = Snapshot[models.Pick]{}
}

func (v *PicksView) storePicks(r client.Result[[]models.Pick]) {
	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.picks.Apply(r)
	v.mu.Unlock()
	v.changed()
}

// Picks returns the rows the table shows: picks matching the view's source,
// sorted by mention count descending. Ties keep their fetched order.
func (v *PicksView) Picks() []models.Pick {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.picksLocked()
}

func (v *PicksView) picksLocked() []models.Pick {
	source, _ := pickSource(v.typ)

	out := make([]models.Pick, 0, len(v.picks.Items))
	for _, p := range v.picks.Items {
		if p.Source == source {
			out = append(out, p)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Pick) int {
		return cmp.Compare(b.Mentions(), a.Mentions())
	})
	return out
}

func (v *PicksView) Render() Table {
	v.mu.RLock()
	defer v.mu.RUnlock()

	t := Table{
		Slot: v.slot,
		Kind: KindPicks,
		Type: v.typ,
	}
	if v.typ == PicksAI {
		t.Title = "Daily AI Stock Picks"
		t.Columns = []string{"Ticker", "Mentions", "Price", "Change"}
	} else {
		t.Title = "Daily Manual Stock Picks"
		t.Columns = []string{"Ticker", "Position", "Price", "Change"}
	}

	for _, p := range v.picksLocked() {
		var detail string
		if v.typ == PicksAI {
			if n := p.Mentions(); n > 0 {
				detail = fmt.Sprintf("(%d mentions)", n)
			}
		} else if p.PositionType != "" {
			detail = fmt.Sprintf("(%s)", p.PositionType)
		}

		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: format.Ticker(p.Ticker)},
			{Text: detail},
			{Text: format.Price(p.CurrentPrice)},
			{Text: format.TrendLabel(p.DailyChange), Trend: format.Classify(p.DailyChange)},
		}})
	}

	return finish(t, "No picks found", []error{v.picks.Err}, v.picks.UpdatedAt)
}
