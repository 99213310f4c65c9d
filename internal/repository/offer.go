package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type offerRepo struct{}

// NewOfferRepository returns a pgx-backed OfferRepository.
func NewOfferRepository() OfferRepository {
	return &offerRepo{}
}

// Offer reads join accounts and markets for display fields so list endpoints
// avoid N+1 lookups.
const offerSelect = `
	SELECT o.id, o.bookie_id, a.username,
	       o.market_id,
	       CASE WHEN m.kind = 'future' THEN m.name ELSE m.away || ' @ ' || m.home END,
	       m.sport,
	       o.type, o.side, o.value, o.amount, o.status,
	       o.max_bettors, o.max_bet_per_user, o.max_total_action,
	       o.current_bettors, o.total_action,
	       o.is_private, o.group_id, o.created_at
	FROM offers o
	JOIN accounts a ON a.id = o.bookie_id
	JOIN markets m ON m.id = o.market_id`

func (r *offerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Offer, error) {
	row := db.QueryRow(ctx, offerSelect+` WHERE o.id = $1`, id)
	return scanOffer(row)
}

func (r *offerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Offer, error) {
	// FOR UPDATE OF o: lock only the offer row, not the joined rows.
	row := tx.QueryRow(ctx, offerSelect+` WHERE o.id = $1 FOR UPDATE OF o`, id)
	return scanOffer(row)
}

func (r *offerRepo) Create(ctx context.Context, db DBTX, o *domain.Offer) error {
	_, err := db.Exec(ctx, `
		INSERT INTO offers
		  (id, bookie_id, market_id, type, side, value, amount, status,
		   max_bettors, max_bet_per_user, max_total_action,
		   current_bettors, total_action, is_private, group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		o.ID, o.BookieID, o.MarketID,
		string(o.Type), string(o.Side), o.Value, o.Amount, string(o.Status),
		o.MaxBettors, o.MaxBetPerUser, o.MaxTotalAction,
		o.CurrentBettors, o.TotalAction, o.IsPrivate, o.GroupID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

func (r *offerRepo) UpdateTerms(ctx context.Context, tx pgx.Tx, id uuid.UUID, update domain.OfferUpdate) (*domain.Offer, error) {
	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1

	if update.Value != nil {
		setClauses = append(setClauses, fmt.Sprintf("value = $%d", argIdx))
		args = append(args, *update.Value)
		argIdx++
	}
	if update.Amount != nil {
		setClauses = append(setClauses, fmt.Sprintf("amount = $%d", argIdx))
		args = append(args, *update.Amount)
		argIdx++
	}
	if update.MaxBettors != nil {
		setClauses = append(setClauses, fmt.Sprintf("max_bettors = $%d", argIdx))
		args = append(args, *update.MaxBettors)
		argIdx++
	}
	if len(setClauses) == 0 {
		return r.FindByID(ctx, tx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE offers SET %s WHERE id = $%d`,
		strings.Join(setClauses, ", "), argIdx)
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update offer terms: %w", err)
	}
	return r.FindByID(ctx, tx, id)
}

func (r *offerRepo) SetStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.OfferStatus) error {
	_, err := tx.Exec(ctx, `UPDATE offers SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("set offer status: %w", err)
	}
	return nil
}

func (r *offerRepo) RecordMatch(ctx context.Context, tx pgx.Tx, id uuid.UUID, stake int64) (*domain.Offer, error) {
	_, err := tx.Exec(ctx, `
		UPDATE offers SET
		  current_bettors = current_bettors + 1,
		  total_action = total_action + $1
		WHERE id = $2`, stake, id)
	if err != nil {
		return nil, fmt.Errorf("record match: %w", err)
	}
	return r.FindByID(ctx, tx, id)
}

func (r *offerRepo) ListOpen(ctx context.Context, db DBTX, viewerID *uuid.UUID, sport string, limit int) ([]domain.Offer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, offerSelect+`
		WHERE o.status = 'open'
		  AND ($1 = '' OR m.sport = $1)
		  AND (
		    o.is_private = false
		    OR ($2::uuid IS NOT NULL AND o.group_id IN (
		      SELECT group_id FROM group_members WHERE account_id = $2
		    ))
		  )
		ORDER BY o.created_at DESC
		LIMIT $3`, sport, viewerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list open offers: %w", err)
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *offerRepo) ListByBookie(ctx context.Context, db DBTX, bookieID uuid.UUID, limit int) ([]domain.Offer, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, offerSelect+`
		WHERE o.bookie_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2`, bookieID, limit)
	if err != nil {
		return nil, fmt.Errorf("list offers by bookie: %w", err)
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *offerRepo) ListActiveByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Offer, error) {
	rows, err := db.Query(ctx, offerSelect+`
		WHERE o.market_id = $1 AND o.status <> 'cancelled'
		ORDER BY o.created_at ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("list active offers by market: %w", err)
	}
	defer rows.Close()
	return collectOffers(rows)
}

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	var o domain.Offer
	err := row.Scan(
		&o.ID, &o.BookieID, &o.BookieName,
		&o.MarketID, &o.MarketDisplay, &o.Sport,
		&o.Type, &o.Side, &o.Value, &o.Amount, &o.Status,
		&o.MaxBettors, &o.MaxBetPerUser, &o.MaxTotalAction,
		&o.CurrentBettors, &o.TotalAction,
		&o.IsPrivate, &o.GroupID, &o.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan offer: %w", err)
	}
	return &o, nil
}

func collectOffers(rows pgx.Rows) ([]domain.Offer, error) {
	var offers []domain.Offer
	for rows.Next() {
		var o domain.Offer
		err := rows.Scan(
			&o.ID, &o.BookieID, &o.BookieName,
			&o.MarketID, &o.MarketDisplay, &o.Sport,
			&o.Type, &o.Side, &o.Value, &o.Amount, &o.Status,
			&o.MaxBettors, &o.MaxBetPerUser, &o.MaxTotalAction,
			&o.CurrentBettors, &o.TotalAction,
			&o.IsPrivate, &o.GroupID, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan offer row: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}
