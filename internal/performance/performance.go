// Package performance derives live percentage returns for open positions.
package performance

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-sniper-dashboard/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ComputeReturn returns the percentage return of a position moving from
// entry to current in the given direction. No rounding is applied.
//
// Without a current price the cached (server-supplied) value is returned
// unchanged. A non-positive entry price, or a direction other than long or
// short, yields no data.
func ComputeReturn(entry decimal.Decimal, current decimal.NullDecimal, dir models.Direction, cached decimal.NullDecimal) decimal.NullDecimal {
	if !current.Valid {
		return cached
	}
	if entry.Sign() <= 0 {
		return decimal.NullDecimal{}
	}

	var diff decimal.Decimal
	switch dir {
	case models.DirectionLong:
		diff = current.Decimal.Sub(entry)
	case models.DirectionShort:
		diff = entry.Sub(current.Decimal)
	default:
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(diff.Mul(hundred).Div(entry))
}

// ForRow returns the performance to display for a position row: live for
// open rows, the server's value for closed ones. The row is not modified.
func ForRow(row models.PositionRow) decimal.NullDecimal {
	if row.Kind != models.RowOpen {
		return row.Performance
	}
	return ComputeReturn(row.EntryPrice, row.CurrentPrice, row.Direction, row.Performance)
}
