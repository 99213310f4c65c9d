package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AccrualService credits hourly passive income. Accrual is applied lazily on
// login and balance reads, plus a periodic sweep so idle accounts still show
// current leaderboard numbers.
type AccrualService struct {
	pool     *pgxpool.Pool
	engine   *ledger.Engine
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewAccrualService creates an AccrualService.
func NewAccrualService(pool *pgxpool.Pool, engine *ledger.Engine, accounts repository.AccountRepository, logger *slog.Logger) *AccrualService {
	return &AccrualService{pool: pool, engine: engine, accounts: accounts, logger: logger}
}

// Apply credits any pending accrual for the account and returns the current
// account row. A no-op when less than a full hour has passed.
func (s *AccrualService) Apply(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.engine.ExecuteAccrual(ctx, tx, domain.AccrualParams{
		AccountID: accountID,
		Now:       time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	if result.Entry != nil {
		s.logger.Info("accrual credited",
			"account_id", accountID, "amount", result.Entry.Amount)
	}
	return result.Account, nil
}

// StartSweep runs Apply over every account on a fixed interval until ctx is
// cancelled. Per-account failures are logged and skipped.
func (s *AccrualService) StartSweep(ctx context.Context, interval time.Duration) {
	s.logger.Info("accrual sweep started", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("accrual sweep stopped")
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

func (s *AccrualService) sweep(ctx context.Context) {
	ids, err := s.accounts.ListIDs(ctx, s.pool)
	if err != nil {
		s.logger.Error("accrual sweep list accounts", "error", err)
		return
	}

	credited := 0
	for _, id := range ids {
		if _, err := s.Apply(ctx, id); err != nil {
			s.logger.Error("accrual sweep apply", "account_id", id, "error", err)
			continue
		}
		credited++
	}
	s.logger.Debug("accrual sweep complete", "accounts", credited)
}
