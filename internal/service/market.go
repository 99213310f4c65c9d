package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MarketService maintains the bettable market catalog: feed-synced games,
// seeded futures markets, and the score-update path that triggers automatic
// settlement when a market goes final.
type MarketService struct {
	pool    *pgxpool.Pool
	markets repository.MarketRepository
	outbox  repository.OutboxRepository
	settle  *SettleService
	replay  *guard.ReplayGuard
	logger  *slog.Logger
}

// NewMarketService creates a MarketService.
func NewMarketService(
	pool *pgxpool.Pool,
	markets repository.MarketRepository,
	outbox repository.OutboxRepository,
	settle *SettleService,
	replay *guard.ReplayGuard,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		pool:    pool,
		markets: markets,
		outbox:  outbox,
		settle:  settle,
		replay:  replay,
		logger:  logger,
	}
}

// Get returns a single market.
func (s *MarketService) Get(ctx context.Context, marketID uuid.UUID) (*domain.Market, error) {
	market, err := s.markets.FindByID(ctx, s.pool, marketID)
	if err != nil {
		return nil, domain.ErrInternal("find market", err)
	}
	if market == nil {
		return nil, domain.ErrNotFound("market", marketID.String())
	}
	return market, nil
}

// ListUpcoming returns markets that have not gone final, soonest first.
func (s *MarketService) ListUpcoming(ctx context.Context, sport string, limit int) ([]domain.Market, error) {
	markets, err := s.markets.ListUpcoming(ctx, s.pool, sport, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list markets", err)
	}
	return markets, nil
}

// SyncMarkets upserts a batch of feed-sourced markets. Existing rows refresh
// their schedule fields; score and status columns are left to the score path.
func (s *MarketService) SyncMarkets(ctx context.Context, markets []domain.Market) error {
	synced := 0
	for i := range markets {
		if err := s.markets.Upsert(ctx, s.pool, &markets[i]); err != nil {
			s.logger.Error("upsert market", "market_id", markets[i].ID, "error", err)
			continue
		}
		synced++
	}
	s.logger.Info("markets synced", "count", synced, "total", len(markets))
	return nil
}

// CreateMarketInput holds the fields for seeding a market by hand: futures
// markets and demo games the feed does not carry.
type CreateMarketInput struct {
	Kind         domain.MarketKind `json:"kind"`
	Sport        string            `json:"sport"`
	Home         string            `json:"home,omitempty"`
	Away         string            `json:"away,omitempty"`
	Name         string            `json:"name,omitempty"`
	CommenceTime time.Time         `json:"commence_time"`
}

// Create seeds a market outside the feed sync.
func (s *MarketService) Create(ctx context.Context, input CreateMarketInput) (*domain.Market, error) {
	switch input.Kind {
	case domain.MarketGame:
		if input.Home == "" || input.Away == "" {
			return nil, domain.ErrValidation("game markets require home and away")
		}
	case domain.MarketFuture:
		if input.Name == "" {
			return nil, domain.ErrValidation("futures markets require a name")
		}
	default:
		return nil, domain.ErrValidation("kind must be game or future")
	}
	if input.Sport == "" {
		return nil, domain.ErrValidation("sport is required")
	}

	market := &domain.Market{
		ID:           uuid.New(),
		Kind:         input.Kind,
		Sport:        input.Sport,
		Home:         input.Home,
		Away:         input.Away,
		Name:         input.Name,
		CommenceTime: input.CommenceTime,
		Status:       domain.MarketUpcoming,
	}
	if err := s.markets.Upsert(ctx, s.pool, market); err != nil {
		return nil, domain.ErrInternal("create market", err)
	}
	return market, nil
}

// ApplyScoreUpdate ingests one feed score push. Duplicate deliveries bounce
// off the replay guard; the market's row lock serializes concurrent updates.
// A final market triggers the settlement sweep synchronously, after the score
// transaction commits, so settlement reads the final scores. The sweep runs
// on every fresh delivery of a final market, not just the transition: if a
// prior sweep died partway, the next feed poll picks up whatever is still
// pending. On any failure the replay key is dropped so the same delivery can
// retry.
func (s *MarketService) ApplyScoreUpdate(ctx context.Context, update domain.ScoreUpdate) error {
	key := update.ReplayKey()
	if res := s.replay.Check(ctx, key); !res.Allowed {
		s.logger.Debug("score update replayed", "market_id", update.MarketID, "key", key)
		return nil
	}

	market, err := s.applyScoresTx(ctx, update)
	if err != nil {
		s.replay.Remove(key)
		return err
	}
	if market == nil {
		return nil
	}

	if market.Status == domain.MarketFinal {
		if err := s.settle.SettleMarket(ctx, market); err != nil {
			s.logger.Error("settle market", "market_id", market.ID, "error", err)
			s.replay.Remove(key)
			return err
		}
	}
	return nil
}

func (s *MarketService) applyScoresTx(ctx context.Context, update domain.ScoreUpdate) (*domain.Market, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.markets.LockForUpdate(ctx, tx, update.MarketID)
	if err != nil {
		return nil, domain.ErrInternal("lock market", err)
	}
	if current == nil {
		s.logger.Warn("score update for unknown market", "market_id", update.MarketID)
		return nil, nil
	}
	if current.Status == domain.MarketFinal {
		// Final is terminal; the stored scores stand and the caller
		// re-sweeps settlement against them.
		return current, nil
	}

	market, err := s.markets.ApplyScores(ctx, tx, update)
	if err != nil {
		return nil, domain.ErrInternal("apply scores", err)
	}

	if market.Status == domain.MarketFinal {
		if err := s.outbox.Insert(ctx, tx, domain.NewMarketFinalizedEvent(market.ID, update.HomeScore, update.AwayScore)); err != nil {
			return nil, domain.ErrInternal("insert outbox event", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("score update applied",
		"market_id", market.ID, "status", market.Status,
		"home_score", update.HomeScore, "away_score", update.AwayScore)
	return market, nil
}
