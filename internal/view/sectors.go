package view

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/stock-sniper-dashboard/internal/client"
	"github.com/trogers1052/stock-sniper-dashboard/internal/format"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

// KindSectors identifies the sectors view
const KindSectors = "sectors"

// SectorsView shows the daily change of a fixed list of sector ETFs
type SectorsView struct {
	*binder
	src     Source
	sectors []models.Sector

	snapshots []models.SectorSnapshot
	quotes    Snapshot[models.SectorSnapshot]
}

// NewSectorsView creates an unmounted sectors view. An empty sectors list
// falls back to models.DefaultSectors.
func NewSectorsView(slot string, sectors []models.Sector, src Source, opts Options) *SectorsView {
	if len(sectors) == 0 {
		sectors = models.DefaultSectors
	}
	sectors = append([]models.Sector(nil), sectors...)
	return &SectorsView{
		binder:    newBinder(slot, opts),
		src:       src,
		sectors:   sectors,
		snapshots: models.BuildSectorSnapshots(sectors, nil),
	}
}

func (v *SectorsView) Kind() string { return KindSectors }

func (v *SectorsView) Type() string { return "" }

// SetType always fails; the sectors view has no variants
func (v *SectorsView) SetType(typ string) error {
	return invalidType(KindSectors, typ)
}

func (v *SectorsView) Mount(ctx context.Context) {
	v.life.Lock()
	defer v.life.Unlock()

	v.mu.Lock()
	v.mounted = true
	v.ctx = ctx
	v.mu.Unlock()

	tickers := models.SectorTickers(v.sectors)
	v.poller.Start(ctx, resource(models.ResourceSectors, v.opts.Clock,
		func(ctx context.Context) (map[string]models.SectorQuote, error) {
			return v.src.Sectors(ctx, tickers)
		},
		v.storeQuotes,
	))
}

func (v *SectorsView) Unmount() {
	v.life.Lock()
	defer v.life.Unlock()

	v.poller.Stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.mounted = false
	v.ctx = nil
	v.quotes = Snapshot[models.SectorSnapshot]{}
	v.snapshots = models.BuildSectorSnapshots(v.sectors, nil)
}

// storeQuotes replaces every snapshot at once on success. A failed poll
// leaves the previous figures in place.
func (v *SectorsView) storeQuotes(r client.Result[map[string]models.SectorQuote]) {
	snaps := client.Result[[]models.SectorSnapshot]{Err: r.Err, FetchedAt: r.FetchedAt}
	if r.OK() {
		snaps.Value = models.BuildSectorSnapshots(v.sectors, r.Value)
	}

	v.mu.Lock()
	if !v.mounted {
		v.mu.Unlock()
		return
	}
	v.quotes.Apply(snaps)
	if v.quotes.Loaded {
		v.snapshots = v.quotes.Items
	}
	v.mu.Unlock()
	v.changed()
}

// Snapshots returns one entry per configured sector, in order
func (v *SectorsView) Snapshots() []models.SectorSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]models.SectorSnapshot(nil), v.snapshots...)
}

func (v *SectorsView) Render() Table {
	v.mu.RLock()
	defer v.mu.RUnlock()

	t := Table{
		Slot:    v.slot,
		Kind:    KindSectors,
		Title:   "Sector Performance",
		Columns: []string{"Ticker", "Sector", "Performance"},
	}
	for _, s := range v.snapshots {
		perf := decimal.NewNullDecimal(s.Performance)
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: format.Ticker(s.Ticker)},
			{Text: s.Name},
			{Text: format.TrendLabel(perf), Trend: format.Classify(perf)},
		}})
	}
	return finish(t, "No sectors found", []error{v.quotes.Err}, v.quotes.UpdatedAt)
}
