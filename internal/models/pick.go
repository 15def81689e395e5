package models

import (
	"github.com/shopspring/decimal"
)

// Pick source constants
const (
	SourceAI     = "AI"
	SourceManual = "Manual"
)

// Pick represents a stock pick, either surfaced from social mentions (AI)
// or entered by hand (Manual)
type Pick struct {
	ID           int                 `json:"id"`
	Ticker       string              `json:"ticker"`
	Source       string              `json:"source"`
	Date         string              `json:"date"`
	MentionCount *int                `json:"mention_count,omitempty"`
	TwitterUsers []string            `json:"twitter_users,omitempty"`
	PositionType Direction           `json:"position_type,omitempty"`
	CurrentPrice decimal.NullDecimal `json:"current_price"`
	DailyChange  decimal.NullDecimal `json:"daily_change"`
}

// Mentions returns the mention count, treating an absent count as zero
func (p Pick) Mentions() int {
	if p.MentionCount == nil {
		return 0
	}
	return *p.MentionCount
}

// NewPick is the request body for creating a pick
type NewPick struct {
	Ticker string `json:"ticker"`
	Source string `json:"source"`
}
