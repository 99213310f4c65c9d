package service

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/policy"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger sources for entries originating in this service. Must match the
// idempotency sources used by the ledger commands.
const sourceWagerMatch = "wager.match"

// OfferService owns the offer lifecycle: bookies post lines, edit or cancel
// them while untouched, and takers match them into wagers. Every balance
// movement goes through the ledger engine inside a single transaction.
type OfferService struct {
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

// NewOfferService creates an OfferService.
func NewOfferService(
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
) *OfferService {
	return &OfferService{
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

// CreateOfferInput holds the fields for posting a new line.
type CreateOfferInput struct {
	BookieID       uuid.UUID        `json:"-"`
	MarketID       uuid.UUID        `json:"market_id"`
	Type           domain.WagerType `json:"type"`
	Side           domain.Side      `json:"side"`
	Value          float64          `json:"value"`
	Amount         int64            `json:"amount"`
	MaxBettors     *int             `json:"max_bettors,omitempty"`
	MaxBetPerUser  *int64           `json:"max_bet_per_user,omitempty"`
	MaxTotalAction *int64           `json:"max_total_action,omitempty"`
	IsPrivate      bool             `json:"is_private"`
	GroupID        *uuid.UUID       `json:"group_id,omitempty"`
}

// Create posts a new line. The full amount is escrowed from the bookie's
// balance before the offer becomes visible.
func (s *OfferService) Create(ctx context.Context, input CreateOfferInput) (*domain.Offer, error) {
	if res := s.limiter.Check(ctx, input.BookieID.String()); !res.Allowed {
		return nil, domain.ErrConstraint(res.Reason)
	}
	if err := domain.ValidateSideForType(input.Type, input.Side); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidatePositiveAmount(input.Amount); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if input.MaxBettors != nil && *input.MaxBettors < 1 {
		return nil, domain.ErrValidation("max_bettors must be at least 1")
	}
	if input.MaxBetPerUser != nil && *input.MaxBetPerUser < 1 {
		return nil, domain.ErrValidation("max_bet_per_user must be positive")
	}
	if input.MaxTotalAction != nil && *input.MaxTotalAction < 1 {
		return nil, domain.ErrValidation("max_total_action must be positive")
	}
	if input.IsPrivate && input.GroupID == nil {
		return nil, domain.ErrValidation("private offers require a group_id")
	}

	// Credit pending accrual first so the balance check sees current funds.
	if _, err := s.accrual.Apply(ctx, input.BookieID); err != nil {
		return nil, err
	}

	if err := checkExposure(ctx, s.pool, s.entries, input.BookieID, input.Amount, policy.CommitOffer); err != nil {
		return nil, err
	}

	market, err := s.markets.FindByID(ctx, s.pool, input.MarketID)
	if err != nil {
		return nil, domain.ErrInternal("find market", err)
	}
	if market == nil {
		return nil, domain.ErrNotFound("market", input.MarketID.String())
	}
	if market.IsLockedAt(time.Now()) {
		return nil, domain.ErrInvalidState("market is locked")
	}

	if input.IsPrivate {
		member, err := isGroupMember(ctx, s.pool, *input.GroupID, input.BookieID)
		if err != nil {
			return nil, domain.ErrInternal("check group membership", err)
		}
		if !member {
			return nil, domain.ErrForbidden("not a member of this group")
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	offer := &domain.Offer{
		ID:             uuid.New(),
		BookieID:       input.BookieID,
		MarketID:       market.ID,
		MarketDisplay:  market.DisplayName(),
		Sport:          market.Sport,
		Type:           input.Type,
		Side:           input.Side,
		Value:          input.Value,
		Amount:         input.Amount,
		Status:         domain.OfferOpen,
		MaxBettors:     input.MaxBettors,
		MaxBetPerUser:  input.MaxBetPerUser,
		MaxTotalAction: input.MaxTotalAction,
		IsPrivate:      input.IsPrivate,
		GroupID:        input.GroupID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.offers.Create(ctx, tx, offer); err != nil {
		return nil, domain.ErrInternal("create offer", err)
	}

	if _, err := s.engine.ExecuteEscrowHold(ctx, tx, domain.EscrowHoldParams{
		AccountID: input.BookieID,
		Amount:    input.Amount,
		OfferID:   offer.ID,
	}); err != nil {
		return nil, err
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewOfferCreatedEvent(offer)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("offer created",
		"offer_id", offer.ID, "bookie_id", offer.BookieID,
		"market_id", offer.MarketID, "type", offer.Type, "amount", offer.Amount)
	return offer, nil
}

// Cancel withdraws an untouched line and releases the escrow. Only the owner
// may cancel, and only while the offer is open with zero matched bettors on
// an unlocked market. The row lock serializes against concurrent takes.
func (s *OfferService) Cancel(ctx context.Context, offerID, accountID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	offer, err := s.offers.LockForUpdate(ctx, tx, offerID)
	if err != nil {
		return domain.ErrInternal("lock offer", err)
	}
	if offer == nil {
		return domain.ErrNotFound("offer", offerID.String())
	}
	if err := s.checkMutable(ctx, offer, accountID); err != nil {
		return err
	}

	if _, err := s.engine.ExecuteEscrowRelease(ctx, tx, domain.EscrowReleaseParams{
		AccountID: accountID,
		Amount:    offer.Amount,
		OfferID:   offer.ID,
	}); err != nil {
		return err
	}

	if err := s.offers.SetStatus(ctx, tx, offer.ID, domain.OfferCancelled); err != nil {
		return domain.ErrInternal("set offer status", err)
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewOfferCancelledEvent(offer.ID, offer.BookieID, offer.Amount)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("offer cancelled", "offer_id", offer.ID, "refunded", offer.Amount)
	return nil
}

// Edit updates an untouched line's value, amount, or bettor cap. Amount
// changes adjust the escrow by the signed difference. Eligibility matches
// Cancel: owner only, open, zero bettors, unlocked market.
func (s *OfferService) Edit(ctx context.Context, offerID, accountID uuid.UUID, update domain.OfferUpdate) (*domain.Offer, error) {
	if update.Amount != nil {
		if err := domain.ValidatePositiveAmount(*update.Amount); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
	}
	if update.MaxBettors != nil && *update.MaxBettors < 1 {
		return nil, domain.ErrValidation("max_bettors must be at least 1")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	offer, err := s.offers.LockForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, domain.ErrInternal("lock offer", err)
	}
	if offer == nil {
		return nil, domain.ErrNotFound("offer", offerID.String())
	}
	if err := s.checkMutable(ctx, offer, accountID); err != nil {
		return nil, err
	}

	if update.Amount != nil {
		if delta := *update.Amount - offer.Amount; delta != 0 {
			if _, err := s.engine.ExecuteEscrowAdjust(ctx, tx, domain.EscrowAdjustParams{
				AccountID: accountID,
				Delta:     delta,
				OfferID:   offer.ID,
			}); err != nil {
				return nil, err
			}
		}
	}

	updated, err := s.offers.UpdateTerms(ctx, tx, offer.ID, update)
	if err != nil {
		return nil, domain.ErrInternal("update offer", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}
	return updated, nil
}

// checkMutable enforces the shared cancel/edit eligibility under the offer's
// row lock: owner only, still open, no matched bettors, market not locked.
func (s *OfferService) checkMutable(ctx context.Context, offer *domain.Offer, accountID uuid.UUID) error {
	if offer.BookieID != accountID {
		return domain.ErrForbidden("not your line")
	}
	if offer.Status != domain.OfferOpen {
		return domain.ErrInvalidState("line is not open")
	}
	if offer.CurrentBettors > 0 {
		return domain.ErrInvalidState("line already has matched action")
	}

	market, err := s.markets.FindByID(ctx, s.pool, offer.MarketID)
	if err != nil {
		return domain.ErrInternal("find market", err)
	}
	if market == nil {
		return domain.ErrNotFound("market", offer.MarketID.String())
	}
	if market.IsLockedAt(time.Now()) {
		return domain.ErrInvalidState("market is locked")
	}
	return nil
}

// TakeOfferInput holds the fields for matching a line. A zero stake takes
// the offer's full remaining amount.
type TakeOfferInput struct {
	OfferID  uuid.UUID `json:"-"`
	BettorID uuid.UUID `json:"-"`
	Stake    int64     `json:"stake"`
}

// Take matches an open line into a wager. The taker gets the mirror of the
// bookie's side, the taker's stake leaves their balance, and an equal amount
// of the bookie's escrow is consumed into the wager pool. Cap checks run
// under the offer's row lock so concurrent takers serialize.
func (s *OfferService) Take(ctx context.Context, input TakeOfferInput) (*domain.Wager, error) {
	if res := s.limiter.Check(ctx, input.BettorID.String()); !res.Allowed {
		return nil, domain.ErrConstraint(res.Reason)
	}

	if _, err := s.accrual.Apply(ctx, input.BettorID); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	offer, err := s.offers.LockForUpdate(ctx, tx, input.OfferID)
	if err != nil {
		return nil, domain.ErrInternal("lock offer", err)
	}
	if offer == nil {
		return nil, domain.ErrNotFound("offer", input.OfferID.String())
	}
	if offer.Status != domain.OfferOpen {
		return nil, domain.ErrInvalidState("line is not open")
	}
	if offer.BookieID == input.BettorID {
		return nil, domain.ErrInvalidState("cannot match your own line")
	}
	if offer.IsPrivate {
		member, err := isGroupMember(ctx, tx, *offer.GroupID, input.BettorID)
		if err != nil {
			return nil, domain.ErrInternal("check group membership", err)
		}
		if !member {
			return nil, domain.ErrForbidden("not a member of this group")
		}
	}

	market, err := s.markets.FindByID(ctx, tx, offer.MarketID)
	if err != nil {
		return nil, domain.ErrInternal("find market", err)
	}
	if market == nil {
		return nil, domain.ErrNotFound("market", offer.MarketID.String())
	}
	if market.IsLockedAt(time.Now()) {
		return nil, domain.ErrInvalidState("market is locked")
	}

	remaining := offer.Amount - offer.TotalAction
	stake := input.Stake
	if stake == 0 {
		stake = remaining
	}
	if err := domain.ValidatePositiveAmount(stake); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if stake > remaining {
		return nil, domain.ErrConstraint("stake exceeds the line's remaining amount")
	}
	if err := offer.CheckCaps(stake); err != nil {
		return nil, err
	}
	if err := checkExposure(ctx, tx, s.entries, input.BettorID, stake, policy.CommitStake); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wager := &domain.Wager{
		ID:            uuid.New(),
		OfferID:       offer.ID,
		MarketID:      offer.MarketID,
		MarketDisplay: offer.MarketDisplay,
		Sport:         offer.Sport,
		BookieID:      offer.BookieID,
		BettorID:      input.BettorID,
		Type:          offer.Type,
		BookieSide:    offer.Side,
		BettorSide:    offer.Side.Opposite(),
		Value:         offer.Value,
		Amount:        stake,
		Status:        domain.WagerPending,
		CreatedAt:     now,
	}

	// Account locks in ID order so a simultaneous settlement touching the
	// same pair cannot deadlock.
	debitBettor := func() error {
		_, err := s.engine.ExecuteStakeDebit(ctx, tx, domain.StakeDebitParams{
			AccountID:  input.BettorID,
			Amount:     stake,
			OfferID:    &offer.ID,
			WagerID:    &wager.ID,
			Source:     sourceWagerMatch,
			ExternalID: wager.ID.String(),
		})
		return err
	}
	consumeBookie := func() error {
		_, err := s.engine.ExecuteEscrowConsume(ctx, tx, domain.EscrowConsumeParams{
			AccountID: offer.BookieID,
			Amount:    stake,
			OfferID:   offer.ID,
			WagerID:   wager.ID,
		})
		return err
	}
	first, second := debitBettor, consumeBookie
	if bytes.Compare(offer.BookieID[:], input.BettorID[:]) < 0 {
		first, second = consumeBookie, debitBettor
	}
	if err := first(); err != nil {
		return nil, err
	}
	if err := second(); err != nil {
		return nil, err
	}

	if err := s.wagers.Create(ctx, tx, wager); err != nil {
		return nil, domain.ErrInternal("create wager", err)
	}

	recorded, err := s.offers.RecordMatch(ctx, tx, offer.ID, stake)
	if err != nil {
		return nil, domain.ErrInternal("record match", err)
	}
	if s.fullyMatched(recorded) {
		if err := s.offers.SetStatus(ctx, tx, offer.ID, domain.OfferMatched); err != nil {
			return nil, domain.ErrInternal("set offer status", err)
		}
	}

	if err := s.outbox.Insert(ctx, tx, domain.NewWagerMatchedEvent(wager)); err != nil {
		return nil, domain.ErrInternal("insert outbox event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	s.logger.Info("wager matched",
		"wager_id", wager.ID, "offer_id", offer.ID,
		"bookie_id", wager.BookieID, "bettor_id", wager.BettorID, "stake", stake)
	return wager, nil
}

// fullyMatched reports whether the line can take no further action: the
// escrowed amount is fully consumed or the bettor cap is reached.
func (s *OfferService) fullyMatched(o *domain.Offer) bool {
	if o.TotalAction >= o.Amount {
		return true
	}
	return o.MaxBettors != nil && o.CurrentBettors >= *o.MaxBettors
}

// ListFeed returns open lines visible to the viewer. Anonymous viewers see
// public lines only.
func (s *OfferService) ListFeed(ctx context.Context, viewerID *uuid.UUID, sport string, limit int) ([]domain.Offer, error) {
	offers, err := s.offers.ListOpen(ctx, s.pool, viewerID, sport, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list offers", err)
	}
	return offers, nil
}

// ListByBookie returns an account's posted lines, newest first.
func (s *OfferService) ListByBookie(ctx context.Context, bookieID uuid.UUID, limit int) ([]domain.Offer, error) {
	offers, err := s.offers.ListByBookie(ctx, s.pool, bookieID, normalizeLimit(limit, 50, 200))
	if err != nil {
		return nil, domain.ErrInternal("list offers", err)
	}
	return offers, nil
}

// Get returns a single offer.
func (s *OfferService) Get(ctx context.Context, offerID uuid.UUID) (*domain.Offer, error) {
	offer, err := s.offers.FindByID(ctx, s.pool, offerID)
	if err != nil {
		return nil, domain.ErrInternal("find offer", err)
	}
	if offer == nil {
		return nil, domain.ErrNotFound("offer", offerID.String())
	}
	return offer, nil
}

// isGroupMember reports whether the account belongs to the group.
func isGroupMember(ctx context.Context, db repository.DBTX, groupID, accountID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND account_id = $2)`,
		groupID, accountID,
	).Scan(&exists)
	return exists, err
}

// checkExposure enforces the account's exposure limits against the amount
// committed over the last rolling day.
func checkExposure(ctx context.Context, db repository.DBTX, entries repository.LedgerEntryRepository, accountID uuid.UUID, amount int64, kind string) error {
	risk, err := entries.SumRiskSince(ctx, db, accountID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return domain.ErrInternal("sum daily risk", err)
	}
	if eval := policy.EvaluateExposure(policy.DefaultExposurePolicy(), amount, kind, risk); !eval.Allowed {
		return domain.ErrConstraint("exposure limit exceeded: " + eval.BreachedLimit)
	}
	return nil
}

// normalizeLimit clamps a client-supplied page size.
func normalizeLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
