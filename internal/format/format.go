// Package format turns raw numbers into the strings and trend classes shown
// in every dashboard table. All functions accept an absent value and render
// it as the empty string.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Trend classifies the direction of a change
type Trend int

const (
	TrendNone Trend = iota
	TrendUp
	TrendDown
	TrendFlat
)

// Trend glyphs
const (
	GlyphUp   = "▲"
	GlyphDown = "▼"
	GlyphFlat = "─"
)

func (t Trend) String() string {
	switch t {
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	case TrendFlat:
		return "flat"
	default:
		return ""
	}
}

// MarshalText renders the trend as "up", "down", "flat" or ""
func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText is the inverse of MarshalText
func (t *Trend) UnmarshalText(text []byte) error {
	switch string(text) {
	case "up":
		*t = TrendUp
	case "down":
		*t = TrendDown
	case "flat":
		*t = TrendFlat
	case "":
		*t = TrendNone
	default:
		return fmt.Errorf("unknown trend %q", text)
	}
	return nil
}

// Glyph returns the arrow for the trend
func (t Trend) Glyph() string {
	switch t {
	case TrendUp:
		return GlyphUp
	case TrendDown:
		return GlyphDown
	case TrendFlat:
		return GlyphFlat
	default:
		return ""
	}
}

// Classify returns the trend of v
func Classify(v decimal.NullDecimal) Trend {
	if !v.Valid {
		return TrendNone
	}
	switch v.Decimal.Sign() {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendFlat
	}
}

// Price formats v as "$X.XX"
func Price(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return "$" + v.Decimal.StringFixed(2)
}

// Percent formats v as a signed percentage with two decimals. Positive
// values get a leading "+"; zero and negative values do not.
func Percent(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	s := v.Decimal.StringFixed(2) + "%"
	if v.Decimal.Sign() > 0 {
		return "+" + s
	}
	return s
}

// TrendArrow returns the glyph for the direction of v
func TrendArrow(v decimal.NullDecimal) string {
	return Classify(v).Glyph()
}

// TrendMagnitude formats the absolute value of v as "X.XX%"
func TrendMagnitude(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return v.Decimal.Abs().StringFixed(2) + "%"
}

// TrendLabel joins arrow and magnitude, e.g. "▲ 1.23%"
func TrendLabel(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return TrendArrow(v) + " " + TrendMagnitude(v)
}

// Ticker renders a symbol the way tables show it, e.g. "$AAPL"
func Ticker(symbol string) string {
	if symbol == "" {
		return ""
	}
	return "$" + symbol
}
