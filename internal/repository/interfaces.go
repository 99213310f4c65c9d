package repository

import (
	"context"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// AccountRepository provides access to accounts.
type AccountRepository interface {
	// FindByID returns an account by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error)

	// FindByUsername returns an account by its unique username.
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Account, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the account.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)

	// Create inserts a new account.
	Create(ctx context.Context, db DBTX, account *domain.Account) error

	// UpdateBalances atomically updates balance and counter columns using
	// server-side arithmetic with dynamic SET clauses.
	UpdateBalances(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error)

	// SearchByUsername returns accounts whose username matches the query
	// (case-insensitive substring), ordered by username.
	SearchByUsername(ctx context.Context, db DBTX, query string, limit int) ([]domain.Account, error)

	// ListByProfit returns the top accounts ordered by profit DESC.
	ListByProfit(ctx context.Context, db DBTX, limit int) ([]domain.Account, error)

	// ListIDs returns every account ID. Used by the accrual sweep.
	ListIDs(ctx context.Context, db DBTX) ([]uuid.UUID, error)
}

// LedgerEntryRepository provides access to ledger_entries.
type LedgerEntryRepository interface {
	// FindExisting checks the idempotency index for a duplicate entry.
	FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.LedgerEntry, error)

	// Insert creates a new ledger entry with balance snapshot. Returns the inserted row.
	Insert(ctx context.Context, db DBTX, params domain.PostEntryParams, balances domain.Balances) (*domain.LedgerEntry, error)

	// FindByID returns an entry by ID.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.LedgerEntry, error)

	// ListByAccount returns entries for an account, ordered by created_at DESC.
	// Supports cursor-based pagination.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error)

	// SumRiskSince returns the total amount the account committed to offers,
	// stakes, and parlays since the given time. Feeds the exposure policy.
	SumRiskSince(ctx context.Context, db DBTX, accountID uuid.UUID, since time.Time) (int64, error)
}

// MarketRepository provides access to markets.
type MarketRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Market, error)

	// LockForUpdate locks the market row during settlement so concurrent
	// score updates serialize.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Market, error)

	// Upsert inserts or refreshes a market from the score feed.
	Upsert(ctx context.Context, db DBTX, market *domain.Market) error

	// ApplyScores writes the feed status and scores.
	ApplyScores(ctx context.Context, tx pgx.Tx, update domain.ScoreUpdate) (*domain.Market, error)

	// ListUpcoming returns markets not yet final, soonest first.
	ListUpcoming(ctx context.Context, db DBTX, sport string, limit int) ([]domain.Market, error)
}

// OfferRepository provides access to offers.
type OfferRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Offer, error)

	// LockForUpdate locks the offer row so cap checks and matches serialize.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Offer, error)

	Create(ctx context.Context, db DBTX, offer *domain.Offer) error

	// UpdateTerms applies an edit to an open offer's line, amount, and caps.
	UpdateTerms(ctx context.Context, tx pgx.Tx, id uuid.UUID, update domain.OfferUpdate) (*domain.Offer, error)

	// SetStatus transitions the offer lifecycle.
	SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OfferStatus) error

	// RecordMatch bumps the bettor counter and total action under the row lock.
	RecordMatch(ctx context.Context, tx pgx.Tx, id uuid.UUID, stake int64) (*domain.Offer, error)

	// ListOpen returns open offers visible to viewerID: public offers plus
	// private ones scoped to groups the viewer belongs to.
	ListOpen(ctx context.Context, db DBTX, viewerID *uuid.UUID, sport string, limit int) ([]domain.Offer, error)

	// ListByBookie returns a bookie's offers, newest first.
	ListByBookie(ctx context.Context, db DBTX, bookieID uuid.UUID, limit int) ([]domain.Offer, error)

	// ListActiveByMarket returns the non-cancelled offers on a market. Used
	// at market finalization to release whatever escrow was never consumed
	// into a wager.
	ListActiveByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Offer, error)
}

// WagerRepository provides access to wagers and parlays.
type WagerRepository interface {
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wager, error)

	// LockForUpdate locks the wager row so settlement runs exactly once.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wager, error)

	Create(ctx context.Context, db DBTX, wager *domain.Wager) error

	// MarkSettled records the outcome. The status guard in the WHERE clause
	// makes a second settlement a no-op at the SQL level.
	MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, winner domain.Winner, auto bool, settledAt time.Time) error

	// ListByAccount returns wagers where the account is either party.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, status *domain.WagerStatus, limit int) ([]domain.Wager, error)

	// ListPendingByMarket returns unsettled wagers on a market for automatic
	// settlement.
	ListPendingByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Wager, error)

	CreateParlay(ctx context.Context, db DBTX, parlay *domain.Parlay) error

	FindParlayByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Parlay, error)

	LockParlayForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Parlay, error)

	// UpdateParlayLegs persists per-leg results as they resolve.
	UpdateParlayLegs(ctx context.Context, tx pgx.Tx, id uuid.UUID, legs []domain.ParlayLeg) error

	// MarkParlaySettled records the terminal parlay status.
	MarkParlaySettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.ParlayStatus, settledAt time.Time) error

	// ListParlaysByBettor returns a bettor's parlays, newest first.
	ListParlaysByBettor(ctx context.Context, db DBTX, bettorID uuid.UUID, limit int) ([]domain.Parlay, error)

	// ListPendingParlaysReferencing returns pending parlays with a leg on the
	// given offer.
	ListPendingParlaysReferencing(ctx context.Context, db DBTX, offerID uuid.UUID) ([]domain.Parlay, error)

	// ListPendingParlaysByMarket returns pending parlays with a leg on the
	// given market.
	ListPendingParlaysByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Parlay, error)

	// SumStakeByOffer returns the total stake matched into wagers on an
	// offer, i.e. the portion of the bookie's escrow actually consumed.
	SumStakeByOffer(ctx context.Context, db DBTX, offerID uuid.UUID) (int64, error)

	// HasSettledWagerBetween reports whether the bettor has at least one
	// settled wager against the bookie. Gates ratings.
	HasSettledWagerBetween(ctx context.Context, db DBTX, bookieID, bettorID uuid.UUID) (bool, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger entry).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished deletes events once delivered to the broker.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}

// AuthUserRepository provides access to auth_users.
type AuthUserRepository interface {
	// FindByUsername returns an auth user by username.
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.AuthUser, error)

	// Create inserts a new auth user.
	Create(ctx context.Context, db DBTX, user *domain.AuthUser) error
}

// PurchaseRepository provides access to purchases.
type PurchaseRepository interface {
	// FindBySessionID returns a purchase by checkout session, nil if absent.
	FindBySessionID(ctx context.Context, db DBTX, sessionID string) (*domain.Purchase, error)

	Create(ctx context.Context, db DBTX, purchase *domain.Purchase) error

	// ListByAccount returns an account's purchases, newest first.
	ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Purchase, error)
}
