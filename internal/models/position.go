package models

import (
	"github.com/shopspring/decimal"
)

// Position status constants. Long and short positions are open; closed
// positions carry an exit price.
const (
	StatusLong   = "long"
	StatusShort  = "short"
	StatusClosed = "closed"
)

// Direction governs the sign of derived performance for open positions
type Direction string

const (
	DirectionLong  Direction = StatusLong
	DirectionShort Direction = StatusShort
)

// Valid reports whether d is long or short
func (d Direction) Valid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Position represents a tracked trade as served by the data service
type Position struct {
	ID           int                 `json:"id"`
	Ticker       string              `json:"ticker"`
	EntryPrice   decimal.Decimal     `json:"entry_price"`
	ExitPrice    decimal.NullDecimal `json:"exit_price"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	DailyChange  decimal.NullDecimal `json:"daily_change"`
	Status       string              `json:"status"`
	Performance  decimal.NullDecimal `json:"performance"`
}

// IsOpen reports whether the position is still held (long or short)
func (p Position) IsOpen() bool {
	return p.Status == StatusLong || p.Status == StatusShort
}

// NewPosition is the request body for creating a position
type NewPosition struct {
	Ticker      string              `json:"ticker"`
	EntryPrice  decimal.Decimal     `json:"entry_price"`
	ExitPrice   decimal.NullDecimal `json:"exit_price"`
	Status      string              `json:"status"`
	Performance decimal.NullDecimal `json:"performance"`
}

// PositionUpdate is a partial update. Nil fields are left untouched by the
// data service and omitted from the request body.
type PositionUpdate struct {
	ExitPrice   *decimal.Decimal `json:"exit_price,omitempty"`
	Status      *string          `json:"status,omitempty"`
	Performance *decimal.Decimal `json:"performance,omitempty"`
}

// RowKind tags a PositionRow as open or closed
type RowKind int

const (
	RowOpen RowKind = iota
	RowClosed
)

func (k RowKind) String() string {
	switch k {
	case RowOpen:
		return "open"
	case RowClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText lets the kind appear as "open"/"closed" in JSON
func (k RowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// PositionRow is the ingested form of a Position or Trade. The kind is
// resolved once when the snapshot arrives and never re-inferred at render.
// Open rows use Direction and CurrentPrice; closed rows use ExitPrice and
// the server-supplied Performance.
type PositionRow struct {
	Kind         RowKind             `json:"kind"`
	ID           int                 `json:"id"`
	Ticker       string              `json:"ticker"`
	Status       string              `json:"status"`
	Direction    Direction           `json:"direction,omitempty"`
	EntryPrice   decimal.Decimal     `json:"entry_price"`
	ExitPrice    decimal.NullDecimal `json:"exit_price"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	DailyChange  decimal.NullDecimal `json:"daily_change"`
	Performance  decimal.NullDecimal `json:"performance"`
	DateClosed   string              `json:"date_closed,omitempty"`
}

// RowFromPosition classifies a position by its status. The second return is
// false for statuses other than long, short or closed.
func RowFromPosition(p Position) (PositionRow, bool) {
	row := PositionRow{
		ID:           p.ID,
		Ticker:       p.Ticker,
		Status:       p.Status,
		EntryPrice:   p.EntryPrice,
		ExitPrice:    p.ExitPrice,
		CurrentPrice: p.CurrentPrice,
		DailyChange:  p.DailyChange,
		Performance:  p.Performance,
	}

	switch p.Status {
	case StatusLong, StatusShort:
		row.Kind = RowOpen
		row.Direction = Direction(p.Status)
	case StatusClosed:
		row.Kind = RowClosed
	default:
		return PositionRow{}, false
	}
	return row, true
}
