package domain

import (
	"time"

	"github.com/google/uuid"
)

// MarketKind distinguishes scheduled games from long-running futures markets.
type MarketKind string

const (
	MarketGame   MarketKind = "game"
	MarketFuture MarketKind = "future"
)

// MarketStatus is the market lifecycle reported by the score feed.
type MarketStatus string

const (
	MarketUpcoming MarketStatus = "upcoming"
	MarketLive     MarketStatus = "live"
	MarketFinal    MarketStatus = "final"
)

// Market represents a bettable event: a game with two participants and a
// start time, or a futures market with a display name and close date.
type Market struct {
	ID           uuid.UUID    `json:"id"`
	Kind         MarketKind   `json:"kind"`
	Sport        string       `json:"sport"`
	Home         string       `json:"home,omitempty"`
	Away         string       `json:"away,omitempty"`
	Name         string       `json:"name,omitempty"` // futures display name
	CommenceTime time.Time    `json:"commence_time"`
	Status       MarketStatus `json:"status"`
	HomeScore    *int         `json:"home_score,omitempty"`
	AwayScore    *int         `json:"away_score,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsLockedAt reports whether the market no longer accepts offer mutation:
// the feed has it live or final, or its start time has elapsed. A zero
// commence time (malformed feed timestamp) does not lock the market.
func (m *Market) IsLockedAt(now time.Time) bool {
	if m.Status == MarketLive || m.Status == MarketFinal {
		return true
	}
	if m.CommenceTime.IsZero() {
		return false
	}
	return !now.Before(m.CommenceTime)
}

// DisplayName is the label shown on offers and wagers against this market.
func (m *Market) DisplayName() string {
	if m.Kind == MarketFuture {
		return m.Name
	}
	return m.Away + " @ " + m.Home
}

// ScoreUpdate is the payload pushed by the external score feed.
type ScoreUpdate struct {
	MarketID  uuid.UUID    `json:"market_id"`
	Status    MarketStatus `json:"status"`
	HomeScore int          `json:"home_score"`
	AwayScore int          `json:"away_score"`
	FeedTime  time.Time    `json:"feed_time"`
}

// ReplayKey is the idempotency key guarding duplicate feed deliveries.
func (u ScoreUpdate) ReplayKey() string {
	return u.MarketID.String() + "|" + string(u.Status) + "|" + u.FeedTime.UTC().Format(time.RFC3339)
}
