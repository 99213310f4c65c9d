package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecutePurchaseCredit credits purchased credits from a completed checkout.
// The checkout session ID is the idempotency key so webhook retries never
// double-credit.
func (e *Engine) ExecutePurchaseCredit(ctx context.Context, tx pgx.Tx, params domain.PurchaseCreditParams) (*domain.CommandResult, error) {
	if err := domain.ValidatePositiveAmount(params.Credits); err != nil {
		return nil, err
	}
	if params.SessionID == "" {
		return nil, domain.ErrValidation("checkout session id is required")
	}

	// Lock
	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("purchase credit: %w", err)
	}

	// Idempotency check
	existing, err := e.FindExistingEntry(ctx, tx, domain.IdempotencyKey{
		AccountID:  params.AccountID,
		Source:     sourceStripe,
		ExternalID: params.SessionID,
	})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &domain.CommandResult{Entry: existing, Account: account, Idempotent: true}, nil
	}

	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryPurchaseCredit,
		Amount:    params.Credits,
		Update: domain.BalanceUpdate{
			Balance:        params.Credits,
			TotalPurchased: params.Credits,
		},
		ExternalID: strPtr(params.SessionID),
		Source:     strPtr(sourceStripe),
		Metadata:   ensureJSON(params.Metadata),
	})
	if err != nil {
		return nil, fmt.Errorf("purchase credit post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

const sourceStripe = "stripe.checkout"
