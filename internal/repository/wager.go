package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type wagerRepo struct{}

// NewWagerRepository returns a pgx-backed WagerRepository.
func NewWagerRepository() WagerRepository {
	return &wagerRepo{}
}

const wagerSelect = `
	SELECT w.id, w.offer_id, w.market_id,
	       CASE WHEN m.kind = 'future' THEN m.name ELSE m.away || ' @ ' || m.home END,
	       m.sport,
	       w.bookie_id, ab.username, w.bettor_id, at.username,
	       w.type, w.bookie_side, w.bettor_side, w.value, w.amount,
	       w.status, w.winner, w.auto_settled, w.settled_at, w.created_at
	FROM wagers w
	JOIN markets m ON m.id = w.market_id
	JOIN accounts ab ON ab.id = w.bookie_id
	JOIN accounts at ON at.id = w.bettor_id`

func (r *wagerRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Wager, error) {
	row := db.QueryRow(ctx, wagerSelect+` WHERE w.id = $1`, id)
	return scanWager(row)
}

func (r *wagerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wager, error) {
	row := tx.QueryRow(ctx, wagerSelect+` WHERE w.id = $1 FOR UPDATE OF w`, id)
	return scanWager(row)
}

func (r *wagerRepo) Create(ctx context.Context, db DBTX, w *domain.Wager) error {
	_, err := db.Exec(ctx, `
		INSERT INTO wagers
		  (id, offer_id, market_id, bookie_id, bettor_id,
		   type, bookie_side, bettor_side, value, amount, status, auto_settled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		w.ID, w.OfferID, w.MarketID, w.BookieID, w.BettorID,
		string(w.Type), string(w.BookieSide), string(w.BettorSide),
		w.Value, w.Amount, string(w.Status), w.AutoSettled, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wager: %w", err)
	}
	return nil
}

func (r *wagerRepo) MarkSettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, winner domain.Winner, auto bool, settledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE wagers SET
		  status = 'settled',
		  winner = $1,
		  auto_settled = $2,
		  settled_at = $3
		WHERE id = $4 AND status = 'pending'`,
		string(winner), auto, settledAt, id)
	if err != nil {
		return fmt.Errorf("mark wager settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState("wager already settled")
	}
	return nil
}

func (r *wagerRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, status *domain.WagerStatus, limit int) ([]domain.Wager, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, wagerSelect+`
		WHERE (w.bookie_id = $1 OR w.bettor_id = $1)
		  AND ($2::text IS NULL OR w.status = $2)
		ORDER BY w.created_at DESC
		LIMIT $3`, accountID, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list wagers by account: %w", err)
	}
	defer rows.Close()
	return collectWagers(rows)
}

func (r *wagerRepo) ListPendingByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Wager, error) {
	rows, err := db.Query(ctx, wagerSelect+`
		WHERE w.market_id = $1 AND w.status = 'pending'
		ORDER BY w.created_at ASC`, marketID)
	if err != nil {
		return nil, fmt.Errorf("list pending wagers by market: %w", err)
	}
	defer rows.Close()
	return collectWagers(rows)
}

func scanWager(row pgx.Row) (*domain.Wager, error) {
	var w domain.Wager
	err := row.Scan(
		&w.ID, &w.OfferID, &w.MarketID, &w.MarketDisplay, &w.Sport,
		&w.BookieID, &w.BookieName, &w.BettorID, &w.BettorName,
		&w.Type, &w.BookieSide, &w.BettorSide, &w.Value, &w.Amount,
		&w.Status, &w.Winner, &w.AutoSettled, &w.SettledAt, &w.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wager: %w", err)
	}
	return &w, nil
}

func collectWagers(rows pgx.Rows) ([]domain.Wager, error) {
	var wagers []domain.Wager
	for rows.Next() {
		var w domain.Wager
		err := rows.Scan(
			&w.ID, &w.OfferID, &w.MarketID, &w.MarketDisplay, &w.Sport,
			&w.BookieID, &w.BookieName, &w.BettorID, &w.BettorName,
			&w.Type, &w.BookieSide, &w.BettorSide, &w.Value, &w.Amount,
			&w.Status, &w.Winner, &w.AutoSettled, &w.SettledAt, &w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan wager row: %w", err)
		}
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}

// --- Parlays ---
// Legs are snapshots of the referenced offers' terms, stored as JSONB.

const parlaySelect = `
	SELECT p.id, p.bettor_id, a.username, p.legs, p.amount, p.potential_payout,
	       p.status, p.settled_at, p.created_at
	FROM parlays p
	JOIN accounts a ON a.id = p.bettor_id`

func (r *wagerRepo) CreateParlay(ctx context.Context, db DBTX, p *domain.Parlay) error {
	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return fmt.Errorf("marshal parlay legs: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO parlays (id, bettor_id, legs, amount, potential_payout, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.BettorID, legs, p.Amount, p.PotentialPayout, string(p.Status), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert parlay: %w", err)
	}
	return nil
}

func (r *wagerRepo) FindParlayByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Parlay, error) {
	row := db.QueryRow(ctx, parlaySelect+` WHERE p.id = $1`, id)
	return scanParlay(row)
}

func (r *wagerRepo) LockParlayForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Parlay, error) {
	row := tx.QueryRow(ctx, parlaySelect+` WHERE p.id = $1 FOR UPDATE OF p`, id)
	return scanParlay(row)
}

func (r *wagerRepo) UpdateParlayLegs(ctx context.Context, tx pgx.Tx, id uuid.UUID, legs []domain.ParlayLeg) error {
	data, err := json.Marshal(legs)
	if err != nil {
		return fmt.Errorf("marshal parlay legs: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE parlays SET legs = $1 WHERE id = $2`, data, id)
	if err != nil {
		return fmt.Errorf("update parlay legs: %w", err)
	}
	return nil
}

func (r *wagerRepo) MarkParlaySettled(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.ParlayStatus, settledAt time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE parlays SET status = $1, settled_at = $2
		WHERE id = $3 AND status = 'pending'`,
		string(status), settledAt, id)
	if err != nil {
		return fmt.Errorf("mark parlay settled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState("parlay already settled")
	}
	return nil
}

func (r *wagerRepo) ListParlaysByBettor(ctx context.Context, db DBTX, bettorID uuid.UUID, limit int) ([]domain.Parlay, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, parlaySelect+`
		WHERE p.bettor_id = $1
		ORDER BY p.created_at DESC
		LIMIT $2`, bettorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list parlays by bettor: %w", err)
	}
	defer rows.Close()
	return collectParlays(rows)
}

func (r *wagerRepo) ListPendingParlaysReferencing(ctx context.Context, db DBTX, offerID uuid.UUID) ([]domain.Parlay, error) {
	rows, err := db.Query(ctx, parlaySelect+`
		WHERE p.status = 'pending'
		  AND p.legs @> $1
		ORDER BY p.created_at ASC`,
		fmt.Sprintf(`[{"offer_id":"%s"}]`, offerID))
	if err != nil {
		return nil, fmt.Errorf("list parlays referencing offer: %w", err)
	}
	defer rows.Close()
	return collectParlays(rows)
}

func (r *wagerRepo) ListPendingParlaysByMarket(ctx context.Context, db DBTX, marketID uuid.UUID) ([]domain.Parlay, error) {
	rows, err := db.Query(ctx, parlaySelect+`
		WHERE p.status = 'pending'
		  AND p.legs @> $1
		ORDER BY p.created_at ASC`,
		fmt.Sprintf(`[{"market_id":"%s"}]`, marketID))
	if err != nil {
		return nil, fmt.Errorf("list parlays referencing market: %w", err)
	}
	defer rows.Close()
	return collectParlays(rows)
}

func (r *wagerRepo) SumStakeByOffer(ctx context.Context, db DBTX, offerID uuid.UUID) (int64, error) {
	var total int64
	err := db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM wagers WHERE offer_id = $1`,
		offerID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum wager stake by offer: %w", err)
	}
	return total, nil
}

func (r *wagerRepo) HasSettledWagerBetween(ctx context.Context, db DBTX, bookieID, bettorID uuid.UUID) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (
		  SELECT 1 FROM wagers
		  WHERE status = 'settled' AND bookie_id = $1 AND bettor_id = $2
		)`, bookieID, bettorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check settled wager between: %w", err)
	}
	return exists, nil
}

func scanParlay(row pgx.Row) (*domain.Parlay, error) {
	var p domain.Parlay
	var legs []byte
	err := row.Scan(
		&p.ID, &p.BettorID, &p.BettorName, &legs,
		&p.Amount, &p.PotentialPayout, &p.Status, &p.SettledAt, &p.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan parlay: %w", err)
	}
	if err := json.Unmarshal(legs, &p.Legs); err != nil {
		return nil, fmt.Errorf("unmarshal parlay legs: %w", err)
	}
	return &p, nil
}

func collectParlays(rows pgx.Rows) ([]domain.Parlay, error) {
	var parlays []domain.Parlay
	for rows.Next() {
		var p domain.Parlay
		var legs []byte
		err := rows.Scan(
			&p.ID, &p.BettorID, &p.BettorName, &legs,
			&p.Amount, &p.PotentialPayout, &p.Status, &p.SettledAt, &p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan parlay row: %w", err)
		}
		if err := json.Unmarshal(legs, &p.Legs); err != nil {
			return nil, fmt.Errorf("unmarshal parlay legs: %w", err)
		}
		parlays = append(parlays, p)
	}
	return parlays, rows.Err()
}
