package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EntryType enumerates all ledger entry types.
type EntryType string

const (
	// Offer lifecycle
	EntryEscrowHold    EntryType = "escrow_hold"
	EntryEscrowRelease EntryType = "escrow_release"
	EntryEscrowAdjust  EntryType = "escrow_adjust"

	// Match
	EntryStakeDebit    EntryType = "stake_debit"
	EntryEscrowConsume EntryType = "escrow_consume"

	// Settlement
	EntrySettlePayout EntryType = "settle_payout"
	EntrySettleLoss   EntryType = "settle_loss"
	EntryStakeReturn  EntryType = "stake_return"

	// Scheduler / shop
	EntryAccrual        EntryType = "accrual"
	EntryPurchaseCredit EntryType = "purchase_credit"
)

// LedgerEntry represents a ledger_entries row (append-only).
type LedgerEntry struct {
	ID           uuid.UUID       `json:"id"`
	AccountID    uuid.UUID       `json:"account_id"`
	Type         EntryType       `json:"type"`
	Amount       int64           `json:"amount"`
	BalanceAfter int64           `json:"balance_after"`
	EscrowAfter  int64           `json:"escrow_after"`
	ExternalID   *string         `json:"external_id,omitempty"`
	Source       *string         `json:"source,omitempty"`
	OfferID      *uuid.UUID      `json:"offer_id,omitempty"`
	WagerID      *uuid.UUID      `json:"wager_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// IdempotencyKey is the composite key used for deduplication.
type IdempotencyKey struct {
	AccountID  uuid.UUID
	Source     string
	ExternalID string
}

// BalanceUpdate describes which account columns to update and by how much.
// Used by PostEntry to build the dynamic UPDATE statement.
type BalanceUpdate struct {
	Balance        int64 // delta for balance column
	Escrow         int64 // delta for escrow column
	Profit         int64 // delta for profit column
	Wins           int
	Losses         int
	LinesCreated   int
	TotalEarned    int64
	TotalPurchased int64
	AdvanceAccrual bool // set last_accrual_at = now()
}

// HasBalanceDelta returns true if the spendable balance changes.
func (u BalanceUpdate) HasBalanceDelta() bool { return u.Balance != 0 }

// HasEscrowDelta returns true if the escrowed balance changes.
func (u BalanceUpdate) HasEscrowDelta() bool { return u.Escrow != 0 }

// PostEntryParams is the input to the atomic PostEntry operation.
type PostEntryParams struct {
	AccountID  uuid.UUID
	Type       EntryType
	Amount     int64
	Update     BalanceUpdate
	ExternalID *string
	Source     *string
	OfferID    *uuid.UUID
	WagerID    *uuid.UUID
	Metadata   json.RawMessage
}

// CommandResult is the return value from all ledger commands.
type CommandResult struct {
	Entry      *LedgerEntry
	Account    *Account
	Idempotent bool // true if this was a duplicate that returned the existing entry
}

// EscrowHoldParams holds the input for ExecuteEscrowHold.
type EscrowHoldParams struct {
	AccountID uuid.UUID
	Amount    int64
	OfferID   uuid.UUID
}

// EscrowReleaseParams holds the input for ExecuteEscrowRelease.
type EscrowReleaseParams struct {
	AccountID uuid.UUID
	Amount    int64
	OfferID   uuid.UUID
}

// EscrowAdjustParams holds the input for ExecuteEscrowAdjust. Delta is the
// signed change to the escrowed amount (positive pulls from balance).
type EscrowAdjustParams struct {
	AccountID uuid.UUID
	Delta     int64
	OfferID   uuid.UUID
}

// StakeDebitParams holds the input for ExecuteStakeDebit.
type StakeDebitParams struct {
	AccountID  uuid.UUID
	Amount     int64
	OfferID    *uuid.UUID
	WagerID    *uuid.UUID
	Source     string
	ExternalID string
}

// EscrowConsumeParams holds the input for ExecuteEscrowConsume.
type EscrowConsumeParams struct {
	AccountID uuid.UUID
	Amount    int64
	OfferID   uuid.UUID
	WagerID   uuid.UUID
}

// SettlePayoutParams holds the input for ExecuteSettlePayout.
type SettlePayoutParams struct {
	AccountID  uuid.UUID
	Payout     int64
	Stake      int64
	WagerID    uuid.UUID
	ExternalID string
}

// SettleLossParams holds the input for ExecuteSettleLoss.
type SettleLossParams struct {
	AccountID  uuid.UUID
	Stake      int64
	WagerID    uuid.UUID
	ExternalID string
}

// StakeReturnParams holds the input for ExecuteStakeReturn (push outcomes).
type StakeReturnParams struct {
	AccountID  uuid.UUID
	Amount     int64
	WagerID    *uuid.UUID
	ExternalID string
}

// AccrualParams holds the input for ExecuteAccrual.
type AccrualParams struct {
	AccountID uuid.UUID
	Now       time.Time
}

// PurchaseCreditParams holds the input for ExecutePurchaseCredit.
type PurchaseCreditParams struct {
	AccountID uuid.UUID
	Credits   int64
	SessionID string
	Metadata  json.RawMessage
}
