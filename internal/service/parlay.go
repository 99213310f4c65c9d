package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/policy"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/bookieverse/platform/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sourceParlayCreate = "parlay.create"

// ParlayService creates multi-leg parlays against open offers. A parlay is a
// single bettor's position: the stake splits evenly across the legs for the
// offers' action accounting, and the payout uses a fixed geometric multiplier
// per leg. The referenced bookies are not counterparties; wins pay from the
// house pool.
type ParlayService struct {
	pool    *pgxpool.Pool
	engine  *ledger.Engine
	offers  repository.OfferRepository
	markets repository.MarketRepository
	wagers  repository.WagerRepository
	entries repository.LedgerEntryRepository
	outbox  repository.OutboxRepository
	accrual *AccrualService
	limiter *guard.RateLimiter
	logger  *slog.Logger
}

// NewParlayService creates a ParlayService.
func NewParlayService(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	offers repository.OfferRepository,
	markets repository.MarketRepository,
	wagers repository.WagerRepository,
	entries repository.LedgerEntryRepository,
	outbox repository.OutboxRepository,
	accrual *AccrualService,
	limiter *guard.RateLimiter,
	logger *slog.Logger,
) *ParlayService {
	return &ParlayService{
		pool:    pool,
		engine:  engine,
		offers:  offers,
		markets: markets,
		wagers:  wagers,
		entries: entries,
		outbox:  outbox,
		accrual: accrual,
		limiter: limiter,
		logger:  logger,
	}
}

// CreateParlayInput holds the fields for opening a parlay.
type CreateParlayInput struct {
	BettorID uuid.UUID   `json:"-"`
	OfferIDs []uuid.UUID `json:"offer_ids"`
	Amount   int64       `json:"amount"`
}

// Create opens a parlay. Every leg must reference a distinct open offer on an
// unlocked market not owned by the bettor. The stake must split evenly across
// the legs; each leg's share accumulates on its offer's action counters.
func (s *ParlayService) Create(ctx context.Context, input CreateParlayInput) (*domain.Parlay, error) {
	if res := s.limiter.Check(ctx, input.BettorID.String()); !res.Allowed {
		return nil, domain.ErrConstraint(res.Reason)
	}
	if err := domain.ValidateParlayLegCount(len(input.OfferIDs)); err != nil {
		return nil, domain.ErrConstraint(err.Error())
	}
	if err := domain.ValidatePositiveAmount(input.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	n := int64(len(input.OfferIDs))
	if input.Amount%n != 0 {
		return nil, domain.ErrValidation("stake must split evenly across legs")
	}
	perLeg := input.Amount / n

	seen := make(map[uuid.UUID]bool, len(input.OfferIDs))
	for _, id := range input.OfferIDs {
		if seen[id] {
			return nil, domain.ErrValidation("duplicate leg offer " + id.String())
		}
		seen[id] = true
	}

	if _, err := s.accrual.Apply(ctx, input.BettorID); err != nil {
		return nil, err
	}

	if err := checkExposure(ctx, s.pool, s.entries, input.BettorID, input.Amount, policy.CommitStake); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	// Lock the leg offers in ID order so two overlapping parlays cannot
	// deadlock, then validate each leg.
	lockOrder := make([]uuid.UUID, len(input.OfferIDs))
	copy(lockOrder, input.OfferIDs)
	sort.Slice(lockOrder, func(i, j int) bool {
		return lockOrder[i].String() < lockOrder[j].String()
	})

	now := time.Now()
	locked := make(map[uuid.UUID]*domain.Offer, len(lockOrder))
	for _, offerID := range lockOrder {
		offer, err := s.offers.LockForUpdate(ctx, tx, offerID)
		if err != nil {
			return nil, domain.ErrInternal("lock offer", err)
		}
		if offer == nil {
			return nil, domain.ErrNotFound("offer", offerID.String())
		}
		if offer.Status != domain.OfferOpen {
			return nil, domain.ErrInvalidState("leg " + offerID.String() + " is not open")
		}
		if offer.BookieID == input.BettorID {
			return nil, domain.ErrInvalidState("cannot include your own line in a parlay")
		}
		if err := offer.CheckCaps(perLeg); err != nil {
			return nil, err
		}

		market, err := s.markets.FindByID(ctx, tx, offer.MarketID)
		if err != nil {
			return nil, domain.ErrInternal("find market", err)
		}
		if market == nil {
			return nil, domain.ErrNotFound("market", offer.MarketID.String())
		}
		if market.IsLockedAt(now) {
			return nil, domain.ErrInvalidState("market is locked for leg " + offerID.String())
		}
		locked[offerID] = offer
	}

	parlay := &domain.Parlay{
		ID:              uuid.New(),
		BettorID:        input.BettorID,
		Legs:            make([]domain.ParlayLeg, 0, len(input.OfferIDs)),
		Amount:          input.Amount,
		PotentialPayout: settlement.ParlayPayout(input.Amount, len(input.OfferIDs)),
		Status:          domain.ParlayPending,
		CreatedAt:       now.UTC(),
	}
	for _, offerID := range input.OfferIDs {
		offer := locked[offerID]
		parlay.Legs = append(parlay.Legs, domain.ParlayLeg{
			OfferID:       offer.ID,
			MarketID:      offer.MarketID,
			MarketDisplay: offer.MarketDisplay,
			Type:          offer.Type,
			BookieSide:    offer.Side,
			Value:         offer.Value,
		})
	}

	if _, err := s.engine.ExecuteStakeDebit(ctx, tx, domain.StakeDebitParams{
		AccountID:  input.BettorID,
		Amount:     input.Amount,
		Source:     sourceParlayCreate,
		ExternalID: parlay.ID.String(),
	}); err != nil {
		return nil, err
	}

	for _, offerID := range lockOrder {
		recorded, err := s.offers.RecordMatch(ctx, tx, offerID, perLeg)
		if err != nil {
			return nil, domain.ErrInternal("record leg action", err)
		}
		if recorded.TotalAction >= recorded.Amount ||
			(recorded.MaxBettors != nil && recorded.CurrentBettors >= *recorded.MaxBettors) {
			if err := s.offers.SetStatus(ctx, tx, offerID, domain.OfferMatched); err != nil {
				return nil, domain.ErrInternal("set offer status", err)
			}
		}
	}

	if err := s.wagers.CreateParlay(ctx, tx, parlay); err != nil {
		return nil, domain.ErrInternal("create parlay", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewParlayCreatedEvent(parlay)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("parlay created",
		"parlay_id", parlay.ID, "bettor_id", parlay.BettorID,
		"legs", len(parlay.Legs), "amount", parlay.Amount,
		"potential_payout", parlay.PotentialPayout)
	return parlay, nil
}

// Get returns a single parlay.
func (s *ParlayService) Get(ctx context.Context, parlayID uuid.UUID) (*domain.Parlay, error) {
	parlay, err := s.wagers.FindParlayByID(ctx, s.pool, parlayID)
	if err != nil {
		return nil, domain.ErrInternal("find parlay", err)
	}
	if parlay == nil {
		return nil, domain.ErrNotFound("parlay", parlayID.String())
	}
	return parlay, nil
}

// ListByBettor returns an account's parlays, newest first.
func (s *ParlayService) ListByBettor(ctx context.Context, bettorID uuid.UUID, limit int) ([]domain.Parlay, error) {
	parlays, err := s.wagers.ListParlaysByBettor(ctx, s.pool, bettorID, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list parlays", err)
	}
	return parlays, nil
}
