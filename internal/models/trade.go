package models

import (
	"github.com/shopspring/decimal"
)

// Trade is the historical, read-only projection of a closed position
type Trade struct {
	ID          int             `json:"id"`
	Ticker      string          `json:"ticker"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	ExitPrice   decimal.Decimal `json:"exit_price"`
	Performance decimal.Decimal `json:"performance"`
	DateClosed  string          `json:"date_closed"`
}

// Row converts a trade into a closed PositionRow
func (t Trade) Row() PositionRow {
	return PositionRow{
		Kind:        RowClosed,
		ID:          t.ID,
		Ticker:      t.Ticker,
		Status:      StatusClosed,
		EntryPrice:  t.EntryPrice,
		ExitPrice:   decimal.NewNullDecimal(t.ExitPrice),
		Performance: decimal.NewNullDecimal(t.Performance),
		DateClosed:  t.DateClosed,
	}
}
