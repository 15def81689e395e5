package models

import (
	"github.com/shopspring/decimal"
)

// Sector is fixed client-side metadata for one sector ETF
type Sector struct {
	Ticker string `json:"ticker" toml:"ticker"`
	Name   string `json:"name" toml:"name"`
}

// DefaultSectors are the SPDR sector ETFs shown on the dashboard
var DefaultSectors = []Sector{
	{Ticker: "XLK", Name: "Technology"},
	{Ticker: "XLF", Name: "Financials"},
	{Ticker: "XLE", Name: "Energy"},
	{Ticker: "XLV", Name: "Healthcare"},
	{Ticker: "XLI", Name: "Industrials"},
	{Ticker: "XLP", Name: "Consumer Staples"},
	{Ticker: "XLY", Name: "Consumer Discretionary"},
	{Ticker: "XLB", Name: "Materials"},
	{Ticker: "XLRE", Name: "Real Estate"},
	{Ticker: "XLU", Name: "Utilities"},
}

// SectorQuote is one entry of the GET /sectors response, keyed by ticker
type SectorQuote struct {
	DailyChange decimal.NullDecimal `json:"daily_change"`
}

// SectorSnapshot pairs sector metadata with the latest performance. The
// whole slice is replaced on every successful poll.
type SectorSnapshot struct {
	Ticker      string          `json:"ticker"`
	Name        string          `json:"name"`
	Performance decimal.Decimal `json:"performance"`
}

// BuildSectorSnapshots joins metadata with quotes. Tickers absent from
// quotes, or quoted without a daily change, report zero performance.
func BuildSectorSnapshots(sectors []Sector, quotes map[string]SectorQuote) []SectorSnapshot {
	out := make([]SectorSnapshot, 0, len(sectors))
	for _, s := range sectors {
		perf := decimal.Zero
		if q, ok := quotes[s.Ticker]; ok && q.DailyChange.Valid {
			perf = q.DailyChange.Decimal
		}
		out = append(out, SectorSnapshot{
			Ticker:      s.Ticker,
			Name:        s.Name,
			Performance: perf,
		})
	}
	return out
}

// SectorTickers returns the tickers of sectors in order
func SectorTickers(sectors []Sector) []string {
	tickers := make([]string, len(sectors))
	for i, s := range sectors {
		tickers[i] = s.Ticker
	}
	return tickers
}
