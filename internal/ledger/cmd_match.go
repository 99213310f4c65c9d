package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteStakeDebit deducts the bettor's stake from their spendable balance
// when they take an offer. The funds are committed to the wager pool until
// settlement.
func (e *Engine) ExecuteStakeDebit(ctx context.Context, tx pgx.Tx, params domain.StakeDebitParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	// Lock
	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("stake debit: %w", err)
	}

	// Idempotency check
	if params.ExternalID != "" {
		existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
			AccountID:  params.AccountID,
			Source:     params.Source,
			ExternalID: params.ExternalID,
		})
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
		}
	}

	if account.Balance < params.Amount {
		return nil, domain.ErrInsufficientBalance()
	}

	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID:  params.AccountID,
		Type:       domain.EntryStakeDebit,
		Amount:     params.Amount,
		Update:     domain.BalanceUpdate{Balance: -params.Amount},
		ExternalID: strPtr(params.ExternalID),
		Source:     strPtr(params.Source),
		OfferID:    params.OfferID,
		WagerID:    params.WagerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("stake debit post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

// ExecuteEscrowConsume commits the bookie's escrowed stake to a matched
// wager. The escrowed funds leave the account entirely; the winner is paid
// from the pool at settlement.
func (e *Engine) ExecuteEscrowConsume(ctx context.Context, tx pgx.Tx, params domain.EscrowConsumeParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("escrow consume: %w", err)
	}

	// Idempotency check: one consume per wager
	extID := params.WagerID.String()
	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceWagerMatch,
		ExternalID: extID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	if account.Escrow < params.Amount {
		return nil, domain.ErrInvalidState("escrowed funds below matched stake")
	}

	offerID := params.OfferID
	wagerID := params.WagerID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID:  params.AccountID,
		Type:       domain.EntryEscrowConsume,
		Amount:     params.Amount,
		Update:     domain.BalanceUpdate{Escrow: -params.Amount},
		ExternalID: strPtr(extID),
		Source:     strPtr(sourceWagerMatch),
		OfferID:    &offerID,
		WagerID:    &wagerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("escrow consume post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

const sourceWagerMatch = "wager.match"
