package service

import (
	"context"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WagerService serves wager reads. Settlement lives in SettleService; matching
// lives in OfferService.
type WagerService struct {
	pool   *pgxpool.Pool
	wagers repository.WagerRepository
}

// NewWagerService creates a WagerService.
func NewWagerService(pool *pgxpool.Pool, wagers repository.WagerRepository) *WagerService {
	return &WagerService{pool: pool, wagers: wagers}
}

// Get returns a single wager.
func (s *WagerService) Get(ctx context.Context, wagerID uuid.UUID) (*domain.Wager, error) {
	wager, err := s.wagers.FindByID(ctx, s.pool, wagerID)
	if err != nil {
		return nil, domain.ErrInternal("find wager", err)
	}
	if wager == nil {
		return nil, domain.ErrNotFound("wager", wagerID.String())
	}
	return wager, nil
}

// ListByAccount returns wagers the account is a party to, newest first, with
// an optional status filter.
func (s *WagerService) ListByAccount(ctx context.Context, accountID uuid.UUID, status *domain.WagerStatus, limit int) ([]domain.Wager, error) {
	wagers, err := s.wagers.ListByAccount(ctx, s.pool, accountID, status, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list wagers", err)
	}
	return wagers, nil
}
