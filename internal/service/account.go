package service

import (
	"context"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccountService serves the authenticated account's own views: current
// balance and the ledger history behind it.
type AccountService struct {
	pool    *pgxpool.Pool
	entries repository.LedgerEntryRepository
	accrual *AccrualService
}

// NewAccountService creates an AccountService.
func NewAccountService(pool *pgxpool.Pool, entries repository.LedgerEntryRepository, accrual *AccrualService) *AccountService {
	return &AccountService{pool: pool, entries: entries, accrual: accrual}
}

// Me returns the caller's account with any pending accrual credited first,
// so the balance shown is always current.
func (s *AccountService) Me(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	account, err := s.accrual.Apply(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound("account", accountID.String())
	}
	return account, nil
}

// Entries returns a page of the caller's ledger history, newest first.
func (s *AccountService) Entries(ctx context.Context, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error) {
	entries, err := s.entries.ListByAccount(ctx, s.pool, accountID, cursor, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list ledger entries", err)
	}
	return entries, nil
}
