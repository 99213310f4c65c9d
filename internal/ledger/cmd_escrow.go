package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteEscrowHold moves the bookie's stake from balance to escrow when an
// offer line is created. Also increments the lines_created counter.
// Pattern: Lock -> Idempotency -> PostEntry
func (e *Engine) ExecuteEscrowHold(ctx context.Context, tx pgx.Tx, params domain.EscrowHoldParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	// Lock
	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("escrow hold: %w", err)
	}

	// Idempotency check: one hold per offer
	extID := params.OfferID.String()
	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceOfferCreate,
		ExternalID: extID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	if account.Balance < params.Amount {
		return nil, domain.ErrInsufficientBalance()
	}

	offerID := params.OfferID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID:  params.AccountID,
		Type:       domain.EntryEscrowHold,
		Amount:     params.Amount,
		Update:     domain.BalanceUpdate{Balance: -params.Amount, Escrow: params.Amount, LinesCreated: 1},
		ExternalID: strPtr(extID),
		Source:     strPtr(sourceOfferCreate),
		OfferID:    &offerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("escrow hold post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

// ExecuteEscrowRelease returns escrowed funds to balance when an offer is
// cancelled or expires unmatched.
func (e *Engine) ExecuteEscrowRelease(ctx context.Context, tx pgx.Tx, params domain.EscrowReleaseParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("escrow release: %w", err)
	}

	extID := params.OfferID.String()
	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceOfferCancel,
		ExternalID: extID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	if account.Escrow < params.Amount {
		return nil, domain.ErrInvalidState("escrowed funds below release amount")
	}

	offerID := params.OfferID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID:  params.AccountID,
		Type:       domain.EntryEscrowRelease,
		Amount:     params.Amount,
		Update:     domain.BalanceUpdate{Balance: params.Amount, Escrow: -params.Amount},
		ExternalID: strPtr(extID),
		Source:     strPtr(sourceOfferCancel),
		OfferID:    &offerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("escrow release post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

// ExecuteEscrowAdjust rebalances escrow after an offer edit. Positive delta
// pulls from balance into escrow, negative delta releases back. Edits can
// legitimately repeat so there is no idempotency key here.
func (e *Engine) ExecuteEscrowAdjust(ctx context.Context, tx pgx.Tx, params domain.EscrowAdjustParams) (*domain.CommandResult, error) {
	if params.Delta == 0 {
		return nil, domain.ErrValidation("escrow adjustment delta must be non-zero")
	}

	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("escrow adjust: %w", err)
	}

	if params.Delta > 0 && account.Balance < params.Delta {
		return nil, domain.ErrInsufficientBalance()
	}
	if params.Delta < 0 && account.Escrow < -params.Delta {
		return nil, domain.ErrInvalidState("escrowed funds below adjustment amount")
	}

	amount := params.Delta
	if amount < 0 {
		amount = -amount
	}

	offerID := params.OfferID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryEscrowAdjust,
		Amount:    amount,
		Update:    domain.BalanceUpdate{Balance: -params.Delta, Escrow: params.Delta},
		OfferID:   &offerID,
		Metadata:  mergeMeta(nil, map[string]interface{}{"delta": params.Delta}),
	})
	if err != nil {
		return nil, fmt.Errorf("escrow adjust post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

const (
	sourceOfferCreate = "offer.create"
	sourceOfferCancel = "offer.cancel"
)
