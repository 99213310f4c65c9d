package domain

import (
	"time"

	"github.com/google/uuid"
)

// WagerStatus is the wager lifecycle. Settled is terminal.
type WagerStatus string

const (
	WagerPending WagerStatus = "pending"
	WagerSettled WagerStatus = "settled"
)

// Winner identifies which party a settled wager resolved to. Push means the
// score landed exactly on the line: both stakes return, nobody wins.
type Winner string

const (
	WinnerBookie Winner = "bookie"
	WinnerBettor Winner = "bettor"
	WinnerPush   Winner = "push"
)

// Valid reports whether w is an assertable settlement outcome.
func (w Winner) Valid() bool {
	return w == WinnerBookie || w == WinnerBettor || w == WinnerPush
}

// Wager is a matched offer: two parties, mirrored sides, one stake each.
// Immutable once settled.
type Wager struct {
	ID            uuid.UUID   `json:"id"`
	OfferID       uuid.UUID   `json:"offer_id"`
	MarketID      uuid.UUID   `json:"market_id"`
	MarketDisplay string      `json:"market"`
	Sport         string      `json:"sport"`
	BookieID      uuid.UUID   `json:"bookie_id"`
	BookieName    string      `json:"bookie_name"`
	BettorID      uuid.UUID   `json:"bettor_id"`
	BettorName    string      `json:"bettor_name"`
	Type          WagerType   `json:"type"`
	BookieSide    Side        `json:"bookie_side"`
	BettorSide    Side        `json:"bettor_side"`
	Value         float64     `json:"value"`
	Amount        int64       `json:"amount"`
	Status        WagerStatus `json:"status"`
	Winner        *Winner     `json:"winner,omitempty"`
	AutoSettled   bool        `json:"auto_settled"`
	SettledAt     *time.Time  `json:"settled_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ParlayStatus is the parlay lifecycle, independent of its legs' offers.
type ParlayStatus string

const (
	ParlayPending ParlayStatus = "pending"
	ParlayWon     ParlayStatus = "won"
	ParlayLost    ParlayStatus = "lost"
)

// ParlayLeg snapshots one referenced offer's terms at parlay creation.
type ParlayLeg struct {
	OfferID       uuid.UUID `json:"offer_id"`
	MarketID      uuid.UUID `json:"market_id"`
	MarketDisplay string    `json:"market"`
	Type          WagerType `json:"type"`
	BookieSide    Side      `json:"bookie_side"`
	Value         float64   `json:"value"`
	Result        *Winner   `json:"result,omitempty"`
}

// Parlay is a single bettor's combined position across 2-10 offer legs with
// an equal-split stake and a fixed geometric payout multiplier.
type Parlay struct {
	ID              uuid.UUID    `json:"id"`
	BettorID        uuid.UUID    `json:"bettor_id"`
	BettorName      string       `json:"bettor_name"`
	Legs            []ParlayLeg  `json:"legs"`
	Amount          int64        `json:"amount"`
	PotentialPayout int64        `json:"potential_payout"`
	Status          ParlayStatus `json:"status"`
	SettledAt       *time.Time   `json:"settled_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

const (
	ParlayMinLegs = 2
	ParlayMaxLegs = 10
)
