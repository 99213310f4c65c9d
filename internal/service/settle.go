package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/bookieverse/platform/internal/settlement"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SettleService resolves pending wagers and parlays into terminal outcomes
// and moves the money exactly once. Two entry paths: either party settles a
// wager manually with an asserted winner, or a market going final settles
// every score-rule wager on it automatically.
type SettleService struct {
	pool    *pgxpool.Pool
	engine  *ledger.Engine
	wagers  repository.WagerRepository
	offers  repository.OfferRepository
	outbox  repository.OutboxRepository
	logger  *slog.Logger
}

// NewSettleService creates a SettleService.
func NewSettleService(
	pool *pgxpool.Pool,
	engine *ledger.Engine,
	wagers repository.WagerRepository,
	offers repository.OfferRepository,
	outbox repository.OutboxRepository,
	logger *slog.Logger,
) *SettleService {
	return &SettleService{
		pool:   pool,
		engine: engine,
		wagers: wagers,
		offers: offers,
		outbox: outbox,
		logger: logger,
	}
}

// ManualSettle settles a wager with a winner asserted by one of its parties.
// There is no cross-check against real-world outcomes; the pair is trusted to
// agree. The wager's row lock plus the pending-status guard make a concurrent
// second settlement fail cleanly.
func (s *SettleService) ManualSettle(ctx context.Context, wagerID, callerID uuid.UUID, winner domain.Winner) (*domain.Wager, error) {
	if !winner.Valid() {
		return nil, domain.ErrValidation("winner must be bookie, bettor, or push")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	wager, err := s.wagers.LockForUpdate(ctx, tx, wagerID)
	if err != nil {
		return nil, domain.ErrInternal("lock wager", err)
	}
	if wager == nil {
		return nil, domain.ErrNotFound("wager", wagerID.String())
	}
	if callerID != wager.BookieID && callerID != wager.BettorID {
		return nil, domain.ErrForbidden("not a party to this wager")
	}
	if wager.Status != domain.WagerPending {
		return nil, domain.ErrInvalidState("wager already settled")
	}

	now := time.Now().UTC()

	// A manual settlement is the only resolution signal for proposition and
	// futures legs, so the winner propagates to parlays riding this offer.
	// Score-rule legs are excluded: their authoritative outcome is the
	// market's final score, and a trust-based settlement between two wager
	// parties must not pre-empt it for third-party parlays. Parlay rows lock
	// before any ledger command so this path and the market sweep take
	// parlay and account locks in the same order.
	var parlays []*domain.Parlay
	if !wager.Type.HasScoreRule() {
		parlays, err = s.lockPendingParlaysReferencing(ctx, tx, wager.OfferID)
		if err != nil {
			return nil, err
		}
	}

	if err := s.settleWagerTx(ctx, tx, wager, winner, false, now); err != nil {
		return nil, err
	}

	for _, parlay := range parlays {
		if err := s.applyLegResult(ctx, tx, parlay, wager.OfferID, winner, now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit tx", err)
	}

	wager.Status = domain.WagerSettled
	wager.Winner = &winner
	wager.SettledAt = &now
	s.logger.Info("wager settled manually",
		"wager_id", wager.ID, "winner", winner, "settled_by", callerID)
	return wager, nil
}

// SettleMarket runs the automatic settlement sweep for a finalized market:
// every pending score-rule wager resolves from the final scores, parlay legs
// on the market resolve and their parlays settle when complete, and any
// escrow never consumed into a wager returns to its bookie. Each wager and
// parlay settles in its own transaction so one failure cannot wedge the rest;
// any failure surfaces as an error so the caller retries the sweep, and a
// re-run is safe because settled rows fail the pending recheck and the ledger
// commands are idempotent.
func (s *SettleService) SettleMarket(ctx context.Context, market *domain.Market) error {
	if market.Status != domain.MarketFinal || market.HomeScore == nil || market.AwayScore == nil {
		return domain.ErrInvalidState("market is not final with scores")
	}
	home, away := *market.HomeScore, *market.AwayScore

	failed := 0
	pending, err := s.wagers.ListPendingByMarket(ctx, s.pool, market.ID)
	if err != nil {
		return domain.ErrInternal("list pending wagers", err)
	}
	for i := range pending {
		w := &pending[i]
		if !w.Type.HasScoreRule() {
			continue
		}
		winner, err := settlement.DetermineWinner(w.Type, w.BookieSide, w.Value, home, away)
		if err != nil {
			s.logger.Error("determine winner", "wager_id", w.ID, "error", err)
			continue
		}
		if err := s.autoSettleWager(ctx, w.ID, winner); err != nil {
			s.logger.Error("auto settle wager", "wager_id", w.ID, "error", err)
			failed++
		}
	}

	parlays, err := s.wagers.ListPendingParlaysByMarket(ctx, s.pool, market.ID)
	if err != nil {
		return domain.ErrInternal("list pending parlays", err)
	}
	for i := range parlays {
		if err := s.resolveParlayForMarket(ctx, parlays[i].ID, market, home, away); err != nil {
			s.logger.Error("resolve parlay", "parlay_id", parlays[i].ID, "error", err)
			failed++
		}
	}

	if err := s.releaseMarketEscrow(ctx, market.ID); err != nil {
		return err
	}

	if failed > 0 {
		return domain.ErrInternal("settle market",
			fmt.Errorf("%d settlements failed on market %s", failed, market.ID))
	}

	s.logger.Info("market settled",
		"market_id", market.ID, "wagers", len(pending), "parlays", len(parlays),
		"home_score", home, "away_score", away)
	return nil
}

// autoSettleWager settles one wager in its own transaction, rechecking the
// pending status under the row lock.
func (s *SettleService) autoSettleWager(ctx context.Context, wagerID uuid.UUID, winner domain.Winner) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	wager, err := s.wagers.LockForUpdate(ctx, tx, wagerID)
	if err != nil {
		return domain.ErrInternal("lock wager", err)
	}
	if wager == nil || wager.Status != domain.WagerPending {
		return nil
	}

	if err := s.settleWagerTx(ctx, tx, wager, winner, true, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}
	return nil
}

// settleWagerTx applies one wager's outcome inside the caller's transaction:
// ledger movements for both parties, the status flip, and the outbox event.
func (s *SettleService) settleWagerTx(ctx context.Context, tx pgx.Tx, wager *domain.Wager, winner domain.Winner, auto bool, now time.Time) error {
	if winner == domain.WinnerPush {
		if err := s.returnBothStakes(ctx, tx, wager); err != nil {
			return err
		}
	} else {
		winnerID, loserID := wager.BookieID, wager.BettorID
		if winner == domain.WinnerBettor {
			winnerID, loserID = wager.BettorID, wager.BookieID
		}
		if err := s.payWinnerAndLoser(ctx, tx, wager, winnerID, loserID); err != nil {
			return err
		}
	}

	if err := s.wagers.MarkSettled(ctx, tx, wager.ID, winner, auto, now); err != nil {
		return err
	}
	if err := s.outbox.Insert(ctx, tx, domain.NewWagerSettledEvent(wager, winner, auto)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}
	return nil
}

// payWinnerAndLoser credits the rake-adjusted pool to the winner and books
// the loss. Both stakes already left their accounts at match time, so the
// loser moves no balance. Account locks go in ID order.
func (s *SettleService) payWinnerAndLoser(ctx context.Context, tx pgx.Tx, wager *domain.Wager, winnerID, loserID uuid.UUID) error {
	payout := settlement.Payout(wager.Amount)
	extID := wager.ID.String()

	payWinner := func() error {
		_, err := s.engine.ExecuteSettlePayout(ctx, tx, domain.SettlePayoutParams{
			AccountID:  winnerID,
			Payout:     payout,
			Stake:      wager.Amount,
			WagerID:    wager.ID,
			ExternalID: extID,
		})
		return err
	}
	bookLoser := func() error {
		_, err := s.engine.ExecuteSettleLoss(ctx, tx, domain.SettleLossParams{
			AccountID:  loserID,
			Stake:      wager.Amount,
			WagerID:    wager.ID,
			ExternalID: extID,
		})
		return err
	}

	first, second := payWinner, bookLoser
	if bytes.Compare(loserID[:], winnerID[:]) < 0 {
		first, second = bookLoser, payWinner
	}
	if err := first(); err != nil {
		return err
	}
	return second()
}

// returnBothStakes handles a push: each party's stake comes back whole, no
// rake, no win/loss counters.
func (s *SettleService) returnBothStakes(ctx context.Context, tx pgx.Tx, wager *domain.Wager) error {
	extID := wager.ID.String()
	ids := []uuid.UUID{wager.BookieID, wager.BettorID}
	if bytes.Compare(ids[1][:], ids[0][:]) < 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}
	for _, accountID := range ids {
		if _, err := s.engine.ExecuteStakeReturn(ctx, tx, domain.StakeReturnParams{
			AccountID:  accountID,
			Amount:     wager.Amount,
			WagerID:    &wager.ID,
			ExternalID: extID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// lockPendingParlaysReferencing row-locks every pending parlay riding the
// offer and returns them. Settled or vanished parlays are skipped.
func (s *SettleService) lockPendingParlaysReferencing(ctx context.Context, tx pgx.Tx, offerID uuid.UUID) ([]*domain.Parlay, error) {
	refs, err := s.wagers.ListPendingParlaysReferencing(ctx, tx, offerID)
	if err != nil {
		return nil, domain.ErrInternal("list parlays referencing offer", err)
	}
	locked := make([]*domain.Parlay, 0, len(refs))
	for i := range refs {
		parlay, err := s.wagers.LockParlayForUpdate(ctx, tx, refs[i].ID)
		if err != nil {
			return nil, domain.ErrInternal("lock parlay", err)
		}
		if parlay == nil || parlay.Status != domain.ParlayPending {
			continue
		}
		locked = append(locked, parlay)
	}
	return locked, nil
}

// applyLegResult writes an asserted winner into the locked parlay's
// unresolved legs on the offer and settles the parlay if it completes.
func (s *SettleService) applyLegResult(ctx context.Context, tx pgx.Tx, parlay *domain.Parlay, offerID uuid.UUID, winner domain.Winner, now time.Time) error {
	changed := false
	for i := range parlay.Legs {
		leg := &parlay.Legs[i]
		if leg.OfferID == offerID && leg.Result == nil {
			w := winner
			leg.Result = &w
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := s.wagers.UpdateParlayLegs(ctx, tx, parlay.ID, parlay.Legs); err != nil {
		return err
	}
	return s.finishParlayIfResolved(ctx, tx, parlay, now)
}

// resolveParlayForMarket fills in a parlay's score-rule legs on the finalized
// market and settles the parlay if every leg now has a result.
func (s *SettleService) resolveParlayForMarket(ctx context.Context, parlayID uuid.UUID, market *domain.Market, home, away int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	parlay, err := s.wagers.LockParlayForUpdate(ctx, tx, parlayID)
	if err != nil {
		return domain.ErrInternal("lock parlay", err)
	}
	if parlay == nil || parlay.Status != domain.ParlayPending {
		return nil
	}

	changed := false
	for i := range parlay.Legs {
		leg := &parlay.Legs[i]
		if leg.Result != nil || leg.MarketID != market.ID || !leg.Type.HasScoreRule() {
			continue
		}
		result, err := settlement.DetermineWinner(leg.Type, leg.BookieSide, leg.Value, home, away)
		if err != nil {
			s.logger.Error("determine parlay leg winner",
				"parlay_id", parlay.ID, "offer_id", leg.OfferID, "error", err)
			continue
		}
		leg.Result = &result
		changed = true
	}
	if changed {
		if err := s.wagers.UpdateParlayLegs(ctx, tx, parlay.ID, parlay.Legs); err != nil {
			return err
		}
	}

	if err := s.finishParlayIfResolved(ctx, tx, parlay, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.ErrInternal("commit tx", err)
	}
	return nil
}

// finishParlayIfResolved settles a fully resolved parlay: payout or loss for
// the bettor, terminal status, outbox event. Parlays with unresolved legs
// stay pending untouched.
func (s *SettleService) finishParlayIfResolved(ctx context.Context, tx pgx.Tx, parlay *domain.Parlay, now time.Time) error {
	results := make([]domain.Winner, 0, len(parlay.Legs))
	for _, leg := range parlay.Legs {
		if leg.Result == nil {
			return nil
		}
		results = append(results, *leg.Result)
	}

	outcome := settlement.ResolveParlay(parlay.Amount, results)
	extID := parlay.ID.String()

	switch outcome.Status {
	case domain.ParlayWon:
		if outcome.EffectiveLegs == 0 {
			// Every leg pushed: the stake comes back, no win recorded.
			if _, err := s.engine.ExecuteStakeReturn(ctx, tx, domain.StakeReturnParams{
				AccountID:  parlay.BettorID,
				Amount:     parlay.Amount,
				ExternalID: extID,
			}); err != nil {
				return err
			}
		} else {
			if _, err := s.engine.ExecuteSettlePayout(ctx, tx, domain.SettlePayoutParams{
				AccountID:  parlay.BettorID,
				Payout:     outcome.Payout,
				Stake:      parlay.Amount,
				WagerID:    parlay.ID,
				ExternalID: extID,
			}); err != nil {
				return err
			}
		}
	case domain.ParlayLost:
		if _, err := s.engine.ExecuteSettleLoss(ctx, tx, domain.SettleLossParams{
			AccountID:  parlay.BettorID,
			Stake:      parlay.Amount,
			WagerID:    parlay.ID,
			ExternalID: extID,
		}); err != nil {
			return err
		}
	default:
		return nil
	}

	if err := s.wagers.MarkParlaySettled(ctx, tx, parlay.ID, outcome.Status, now); err != nil {
		return err
	}
	parlay.Status = outcome.Status
	if err := s.outbox.Insert(ctx, tx, domain.NewParlaySettledEvent(parlay, outcome.Payout)); err != nil {
		return domain.ErrInternal("insert outbox event", err)
	}

	s.logger.Info("parlay settled",
		"parlay_id", parlay.ID, "status", outcome.Status,
		"effective_legs", outcome.EffectiveLegs, "payout", outcome.Payout)
	return nil
}

// releaseMarketEscrow returns whatever escrow on the market's offers was
// never consumed into a wager: unmatched lines refund whole, partially
// matched lines refund the remainder. The release command's idempotency key
// makes a rerun of the sweep harmless.
func (s *SettleService) releaseMarketEscrow(ctx context.Context, marketID uuid.UUID) error {
	active, err := s.offers.ListActiveByMarket(ctx, s.pool, marketID)
	if err != nil {
		return domain.ErrInternal("list active offers", err)
	}

	failed := 0
	for i := range active {
		if err := s.releaseOfferEscrow(ctx, active[i].ID); err != nil {
			s.logger.Error("release offer escrow", "offer_id", active[i].ID, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return domain.ErrInternal("release market escrow",
			fmt.Errorf("%d offers failed on market %s", failed, marketID))
	}
	return nil
}

func (s *SettleService) releaseOfferEscrow(ctx context.Context, offerID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	offer, err := s.offers.LockForUpdate(ctx, tx, offerID)
	if err != nil {
		return domain.ErrInternal("lock offer", err)
	}
	if offer == nil || offer.Status == domain.OfferCancelled {
		return nil
	}

	consumed, err := s.wagers.SumStakeByOffer(ctx, tx, offer.ID)
	if err != nil {
		return domain.ErrInternal("sum consumed stake", err)
	}

	if remaining := offer.Amount - consumed; remaining > 0 {
		if _, err := s.engine.ExecuteEscrowRelease(ctx, tx, domain.EscrowReleaseParams{
			AccountID: offer.BookieID,
			Amount:    remaining,
			OfferID:   offer.ID,
		}); err != nil {
			return err
		}
		s.logger.Info("escrow released on market close",
			"offer_id", offer.ID, "bookie_id", offer.BookieID, "amount", remaining)
	}

	// Untouched lines close out as cancelled; anything with action stays
	// matched for history.
	status := domain.OfferMatched
	if offer.CurrentBettors == 0 {
		status = domain.OfferCancelled
	}
	if offer.Status != status {
		if err := s.offers.SetStatus(ctx, tx, offer.ID, status); err != nil {
			return domain.ErrInternal("set offer status", err)
		}
	}

	return tx.Commit(ctx)
}
