package view

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/format"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
	"github.com/trogers1052/stock-sniper-dashboard/internal/performance"
	"github.com/trogers1052/stock-sniper-dashboard/internal/poller"
)

// KindPositions identifies positions views
const KindPositions = "positions"

// PositionsView shows positions with one status. The closed view also polls
// trade history and lists it after closed positions.
type PositionsView struct {
	*binder
	src Source

	typ       string
	positions Snapshot[models.PositionRow]
	trades    Snapshot[models.PositionRow]
}

// NewPositionsView creates an unmounted positions view. typ is long, short
// or closed.
func NewPositionsView(slot, typ string, src Source, opts Options) (*PositionsView, error) {
	if !validStatus(typ) {
		return nil, invalidType(KindPositions, typ)
	}
	return &PositionsView{
		binder: newBinder(slot, opts),
		src:    src,
		typ:    typ,
	}, nil
}

func validStatus(s string) bool {
	switch s {
	case models.StatusLong, models.StatusShort, models.StatusClosed:
		return true
	default:
		return false
	}
}

func (v *PositionsView) Kind() string { return KindPositions }

func (v *PositionsView) Type() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.typ
}

// SetType changes the status filter. When the change adds or removes trade
// history from the polled set the poller is re-armed with the new resources.
func (v *PositionsView) SetType(typ string) error {
	if !validStatus(typ) {
		return invalidType(KindPositions, typ)
	}

	v.life.Lock()
	defer v.life.Unlock()

	v.mu.Lock()
	if v.typ == typ {
		v.mu.Unlock()
		return nil
	}
	retarget := (v.typ == models.StatusClosed) != (typ == models.StatusClosed)
	v.typ = typ
	ctx, mounted := v.ctx, v.mounted
	if retarget {
		v.trades = Snapshot[models.PositionRow]{}
	}
	v.mu.Unlock()

	if retarget && mounted {
		v.poller.Start(ctx, v.resources(typ)...)
	}
	v.changed()
	return nil
}

func (v *PositionsView) resources(typ string) []poller.Resource {
	res := []poller.Resource{
		resource(models.ResourcePositions, v.opts.Clock, v.src.Positions, v.storePositions),
	}
	if typ == models.StatusClosed {
		res = append(res, resource(models.ResourceTrades, v.opts.Clock, v.src.Trades, v.storeTrades))
	}
	return res
}

func (v *PositionsView) Mount(ctx context.Context) {
	v.life.Lock()
	defer v.life.Unlock()

	v.mu.Lock()
	v.mounted = true
	v.ctx = ctx
	typ := v.typ
	v.mu.Unlock()

	v.poller.Start(ctx, v.resources(typ)...)
}

func (v *PositionsView) Unmount() {
	v.life.Lock()
	defer v.life.Unlock()

	v.poller.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = false
	v.ctx = nil
	v.positions = Snapshot[models.PositionRow]{}
	v.trades = Snapshot[models.PositionRow]{}
}

// storePositions classifies positions into rows once, at ingestion
func (v *PositionsView) storePositions(r client.Result[[]models.Position]) {
	rows := client.Result[[]models.PositionRow]{Err: r.Err, FetchedAt: r.FetchedAt}
	if r.OK() {
		rows.Value = make([]models.PositionRow, 0, len(r.Value))
		for _, p := range r.Value {
			row, ok := models.RowFromPosition(p)
			if !ok {
				v.opts.Logger.Warn("view: dropping position with unknown status",
					slog.String("slot", v.slot),
					slog.Int("id", p.ID),
					slog.String("status", p.Status),
				)
				continue
			}
			rows.Value = append(rows.Value, row)
		}
	}

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.positions.Apply(rows)
	v.mu.Unlock()
	v.changed()
}

func (v *PositionsView) storeTrades(r client.Result[[]models.Trade]) {
	rows := client.Result[[]models.PositionRow]{Err: r.Err, FetchedAt: r.FetchedAt}
	if r.OK() {
		rows.Value = make([]models.PositionRow, 0, len(r.Value))
		for _, t := range r.Value {
			rows.Value = append(rows.Value, t.Row())
		}
	}

	v.mu.Lock()
	if !v.mounted || v.typ != models.StatusClosed {
		v.mu.Unlock()
		return
	}
	v.trades.Apply(rows)
	v.mu.Unlock()
	v.changed()
}

// Rows returns the rows whose status matches the view type exactly
func (v *PositionsView) Rows() []models.PositionRow {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.rowsLocked()
}

func (v *PositionsView) rowsLocked() []models.PositionRow {
	var out []models.PositionRow
	for _, row := range v.positions.Items {
		if row.Status == v.typ {
			out = append(out, row)
		}
	}
	if v.typ == models.StatusClosed {
		out = append(out, v.trades.Items...)
	}
	return out
}

func (v *PositionsView) Render() Table {
	v.mu.RLock()
	defer v.mu.RUnlock()

	t := Table{
		Slot: v.slot,
		Kind: KindPositions,
		Type: v.typ,
	}
	switch v.typ {
	case models.StatusLong:
		t.Title = "Current Long Positions"
	case models.StatusShort:
		t.Title = "Current Short Positions"
	default:
		t.Title = "Old Trades"
	}

	if v.typ == models.StatusClosed {
		t.Columns = []string{"Ticker", "Performance", "Entry Price", "Exit Price", "Closed"}
	} else {
		t.Columns = []string{"Ticker", "Performance", "Entry Price", "Current Price", "Daily Change"}
	}

	for _, row := range v.rowsLocked() {
		// Recomputed on every render; current prices move between polls.
		perf := performance.ForRow(row)
		cells := []Cell{
			{Text: format.Ticker(row.Ticker)},
			{Text: format.Percent(perf), Trend: format.Classify(perf)},
			{Text: format.Price(decimal.NewNullDecimal(row.EntryPrice))},
		}
		switch row.Kind {
		case models.RowClosed:
			cells = append(cells,
				Cell{Text: format.Price(row.ExitPrice)},
				Cell{Text: row.DateClosed},
			)
		default:
			cells = append(cells,
				Cell{Text: format.Price(row.CurrentPrice)},
				Cell{Text: format.TrendLabel(row.DailyChange), Trend: format.Classify(row.DailyChange)},
			)
		}
		t.Rows = append(t.Rows, Row{Cells: cells})
	}

	errs := []error{v.positions.Err}
	if v.typ == models.StatusClosed {
		errs = append(errs, v.trades.Err)
	}
	return finish(t, "No positions found", errs, v.positions.UpdatedAt, v.trades.UpdatedAt)
}
