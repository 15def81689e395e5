package models

import "time"

// Dashboard event type constants
const (
	EventPickAdded       = "PICK_ADDED"
	EventPickRemoved     = "PICK_REMOVED"
	EventPositionAdded   = "POSITION_ADDED"
	EventPositionUpdated = "POSITION_UPDATED"
	EventPositionRemoved = "POSITION_REMOVED"
)

// Resource names polled from the data service
const (
	ResourcePicks     = "picks"
	ResourcePositions = "positions"
	ResourceTrades    = "trades"
	ResourceSectors   = "sectors"
)

// DashboardEvent represents a Kafka event for a mutation made through the
// dashboard's admin endpoints
type DashboardEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Ticker    string    `json:"ticker,omitempty"`
	ID        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Resources returns the polled resources the event's mutation touches.
// Closing a position can also add a trade history row.
func (e DashboardEvent) Resources() []string {
	switch e.EventType {
	case EventPickAdded, EventPickRemoved:
		return []string{ResourcePicks}
	case EventPositionAdded, EventPositionRemoved:
		return []string{ResourcePositions}
	case EventPositionUpdated:
		return []string{ResourcePositions, ResourceTrades}
	default:
		return nil
	}
}
