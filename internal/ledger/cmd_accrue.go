package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ExecuteAccrual credits hourly passive income since the account's last
// accrual, capped at the offline window. Whole hours only; the fractional
// remainder is discarded and the accrual clock advances to now, so repeated
// calls in the same hour are no-ops.
func (e *Engine) ExecuteAccrual(ctx context.Context, tx pgx.Tx, params domain.AccrualParams) (*domain.CommandResult, error) {
	// Lock
	account, err := e.LockAccountForUpdate(ctx, tx, params.AccountID)
	if err != nil {
		return nil, fmt.Errorf("accrual: %w", err)
	}

	earned := domain.ComputeAccrual(account.LastAccrualAt, params.Now)
	if earned == 0 {
		return &domain.CommandResult{Account: account}, nil
	}

	entry, updated, err := e.PostEntry(ctx, tx, domain.PostEntryParams{
		AccountID: params.AccountID,
		Type:      domain.EntryAccrual,
		Amount:    earned,
		Update: domain.BalanceUpdate{
			Balance:        earned,
			TotalEarned:    earned,
			AdvanceAccrual: true,
		},
		Source:   strPtr(sourceAccrual),
		Metadata: mergeMeta(nil, map[string]interface{}{"since": account.LastAccrualAt}),
	})
	if err != nil {
		return nil, fmt.Errorf("accrual post: %w", err)
	}

	return &domain.CommandResult{Entry: entry, Account: updated}, nil
}

const sourceAccrual = "scheduler.accrual"
