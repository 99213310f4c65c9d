package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// NewEntryPostedEvent creates the standard ledger event for a posted entry.
func NewEntryPostedEvent(entry *LedgerEntry) OutboxDraft {
	payload, _ := json.Marshal(entry)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateAccount,
		AggregateID:   entry.AccountID.String(),
		EventType:     EventEntryPosted,
		PartitionKey:  entry.AccountID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewAccountCreatedEvent creates an account lifecycle event.
func NewAccountCreatedEvent(accountID uuid.UUID, username string) OutboxDraft {
	payload, _ := json.Marshal(map[string]string{
		"account_id": accountID.String(),
		"username":   username,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateAccount,
		AggregateID:   accountID.String(),
		EventType:     EventAccountCreated,
		PartitionKey:  accountID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewOfferCreatedEvent records a new line going up.
func NewOfferCreatedEvent(o *Offer) OutboxDraft {
	payload, _ := json.Marshal(o)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateOffer,
		AggregateID:   o.ID.String(),
		EventType:     EventOfferCreated,
		PartitionKey:  o.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewOfferCancelledEvent records an offer cancellation and escrow release.
func NewOfferCancelledEvent(offerID, bookieID uuid.UUID, refunded int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"offer_id":  offerID.String(),
		"bookie_id": bookieID.String(),
		"refunded":  refunded,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateOffer,
		AggregateID:   offerID.String(),
		EventType:     EventOfferCancelled,
		PartitionKey:  offerID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewWagerMatchedEvent records a taker matching an offer into a live wager.
func NewWagerMatchedEvent(w *Wager) OutboxDraft {
	payload, _ := json.Marshal(w)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWager,
		AggregateID:   w.ID.String(),
		EventType:     EventWagerMatched,
		PartitionKey:  w.OfferID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewParlayCreatedEvent records a bettor opening a parlay across offer legs.
func NewParlayCreatedEvent(p *Parlay) OutboxDraft {
	payload, _ := json.Marshal(p)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWager,
		AggregateID:   p.ID.String(),
		EventType:     EventParlayCreated,
		PartitionKey:  p.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewParlaySettledEvent records a parlay resolving to won or lost.
func NewParlaySettledEvent(p *Parlay, payout int64) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"parlay_id": p.ID.String(),
		"bettor_id": p.BettorID.String(),
		"status":    p.Status,
		"amount":    p.Amount,
		"payout":    payout,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWager,
		AggregateID:   p.ID.String(),
		EventType:     EventParlaySettled,
		PartitionKey:  p.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewCreditPurchasedEvent records a completed credit purchase.
func NewCreditPurchasedEvent(p *Purchase) OutboxDraft {
	payload, _ := json.Marshal(p)
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateAccount,
		AggregateID:   p.AccountID.String(),
		EventType:     EventCreditPurchased,
		PartitionKey:  p.AccountID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewWagerSettledEvent records a settlement outcome for downstream consumers.
func NewWagerSettledEvent(w *Wager, winner Winner, auto bool) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"wager_id":     w.ID.String(),
		"bookie_id":    w.BookieID.String(),
		"bettor_id":    w.BettorID.String(),
		"winner":       winner,
		"amount":       w.Amount,
		"auto_settled": auto,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateWager,
		AggregateID:   w.ID.String(),
		EventType:     EventWagerSettled,
		PartitionKey:  w.ID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}

// NewMarketFinalizedEvent records a market transitioning into final.
func NewMarketFinalizedEvent(marketID uuid.UUID, home, away int) OutboxDraft {
	payload, _ := json.Marshal(map[string]interface{}{
		"market_id":  marketID.String(),
		"home_score": home,
		"away_score": away,
	})
	return OutboxDraft{
		EventID:       uuid.New(),
		AggregateType: AggregateMarket,
		AggregateID:   marketID.String(),
		EventType:     EventMarketFinalized,
		PartitionKey:  marketID.String(),
		Payload:       payload,
		OccurredAt:    time.Now(),
	}
}
