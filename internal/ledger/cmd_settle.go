package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteSettlePayout credits the winner's payout from the wager pool and
// bumps their win counters. Profit tracks the net gain over the stake.
func (e *Engine) ExecuteSettlePayout(ctx context.Context, tx pgx.Tx, params domain.SettlePayoutParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Payout); err != nil {
		return nil, err
	}

	// Lock
	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("settle payout: %w", err)
	}

	// Idempotency check: one payout per wager per account
	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceWagerSettle,
		ExternalID: params.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	wagerID := params.WagerID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntrySettlePayout,
		Amount:    params.Payout,
		Update: domain.BalanceUpdate{
			Balance: params.Payout,
			Profit:  params.Payout - params.Stake,
			Wins:    1,
		},
		ExternalID: strPtr(params.ExternalID),
		Source:     strPtr(sourceWagerSettle),
		WagerID:    &wagerID,
		Metadata:   mergeMeta(nil, map[string]interface{}{"stake": params.Stake}),
	})
	if err != nil {
		return nil, fmt.Errorf("settle payout post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

// ExecuteSettleLoss records the loser's side of a settlement. The stake was
// already debited at match time so no balance moves here, only profit and
// the loss counter.
func (e *Engine) ExecuteSettleLoss(ctx context.Context, tx pgx.Tx, params domain.SettleLossParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Stake); err != nil {
		return nil, err
	}

	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("settle loss: %w", err)
	}

	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceWagerSettle,
		ExternalID: params.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	wagerID := params.WagerID
	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntrySettleLoss,
		Amount:    params.Stake,
		Update: domain.BalanceUpdate{
			Profit: -params.Stake,
			Losses: 1,
		},
		ExternalID: strPtr(params.ExternalID),
		Source:     strPtr(sourceWagerSettle),
		WagerID:    &wagerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("settle loss post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

// ExecuteStakeReturn refunds a committed stake with no rake and no counter
// changes. Used for pushes and for voided parlay entries.
func (e *Engine) ExecuteStakeReturn(ctx context.Context, tx pgx.Tx, params domain.StakeReturnParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Amount); err != nil {
		return nil, err
	}

	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("stake return: %w", err)
	}

	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceWagerSettle,
		ExternalID: params.ExternalID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID:  params.AccountID,
		Type:       domain.EntryStakeReturn,
		Amount:     params.Amount,
		Update:     domain.BalanceUpdate{Balance: params.Amount},
		ExternalID: strPtr(params.ExternalID),
		Source:     strPtr(sourceWagerSettle),
		WagerID:    params.WagerID,
		Metadata:   ensureJSON(nil),
	})
	if err != nil {
		return nil, fmt.Errorf("stake return post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

const sourceWagerSettle = "wager.settle"
