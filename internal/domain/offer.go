package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WagerType enumerates the supported wager variants.
type WagerType string

const (
	WagerSpread      WagerType = "spread"
	WagerMoneyline   WagerType = "moneyline"
	WagerTotal       WagerType = "total"
	WagerProposition WagerType = "proposition"
	WagerFuture      WagerType = "future"
)

// HasScoreRule reports whether the wager type can be resolved automatically
// from final scores. Proposition and futures wagers settle manually only.
func (t WagerType) HasScoreRule() bool {
	switch t {
	case WagerSpread, WagerMoneyline, WagerTotal:
		return true
	}
	return false
}

// Side is the position the bookie takes on an offer.
type Side string

const (
	SideHome  Side = "home"
	SideAway  Side = "away"
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Opposite returns the taker's side given the bookie's.
func (s Side) Opposite() Side {
	switch s {
	case SideHome:
		return SideAway
	case SideAway:
		return SideHome
	case SideOver:
		return SideUnder
	case SideUnder:
		return SideOver
	}
	return s
}

// OfferStatus is the offer lifecycle.
type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferMatched   OfferStatus = "matched"
	OfferCancelled OfferStatus = "cancelled"
)

// Offer represents an open line posted by a bookie. The offer amount is
// escrowed from the bookie's balance at creation and stays held until the
// offer is cancelled or consumed into a wager on match.
type Offer struct {
	ID             uuid.UUID   `json:"id"`
	BookieID       uuid.UUID   `json:"bookie_id"`
	BookieName     string      `json:"bookie_name"`
	MarketID       uuid.UUID   `json:"market_id"`
	MarketDisplay  string      `json:"market"`
	Sport          string      `json:"sport"`
	Type           WagerType   `json:"type"`
	Side           Side        `json:"side"`
	Value          float64     `json:"value"`
	Amount         int64       `json:"amount"`
	Status         OfferStatus `json:"status"`
	MaxBettors     *int        `json:"max_bettors,omitempty"`
	MaxBetPerUser  *int64      `json:"max_bet_per_user,omitempty"`
	MaxTotalAction *int64      `json:"max_total_action,omitempty"`
	CurrentBettors int         `json:"current_bettors"`
	TotalAction    int64       `json:"total_action"`
	IsPrivate      bool        `json:"is_private"`
	GroupID        *uuid.UUID  `json:"group_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// CheckCaps verifies a prospective match of the given stake against the
// offer's configured caps. Must be evaluated under the offer's row lock so
// two simultaneous takers cannot both pass.
func (o *Offer) CheckCaps(stake int64) error {
	if o.MaxBettors != nil && o.CurrentBettors >= *o.MaxBettors {
		return ErrConstraint("line is full")
	}
	if o.MaxBetPerUser != nil && stake > *o.MaxBetPerUser {
		return ErrConstraint(fmt.Sprintf("stake exceeds per-user cap of %d", *o.MaxBetPerUser))
	}
	if o.MaxTotalAction != nil && o.TotalAction+stake > *o.MaxTotalAction {
		return ErrConstraint(fmt.Sprintf("stake exceeds total action cap of %d", *o.MaxTotalAction))
	}
	return nil
}

// OfferUpdate carries the editable offer fields. Nil means unchanged.
type OfferUpdate struct {
	Value      *float64 `json:"value,omitempty"`
	Amount     *int64   `json:"amount,omitempty"`
	MaxBettors *int     `json:"max_bettors,omitempty"`
}
