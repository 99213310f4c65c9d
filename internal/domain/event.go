package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventAccountCreated  EventType = "bv.account.created"
	EventEntryPosted     EventType = "bv.ledger.entry.posted"
	EventOfferCreated    EventType = "bv.offer.created"
	EventOfferCancelled  EventType = "bv.offer.cancelled"
	EventWagerMatched    EventType = "bv.wager.matched"
	EventWagerSettled    EventType = "bv.wager.settled"
	EventParlayCreated   EventType = "bv.parlay.created"
	EventParlaySettled   EventType = "bv.parlay.settled"
	EventMarketFinalized EventType = "bv.market.finalized"
	EventCreditPurchased EventType = "bv.shop.credit.purchased"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateAccount AggregateType = "account"
	AggregateOffer   AggregateType = "offer"
	AggregateWager   AggregateType = "wager"
	AggregateMarket  AggregateType = "market"
)

// OutboxDraft is the payload written to the event_outbox table. SeqID is
// assigned by the database and populated only on reads.
type OutboxDraft struct {
	SeqID         int64           `json:"-"`
	EventID       uuid.UUID       `json:"event_id"`
	AggregateType AggregateType   `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     EventType       `json:"event_type"`
	PartitionKey  string          `json:"partition_key"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// GuardResult is the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Guard   string `json:"guard,omitempty"` // which guard blocked
}
