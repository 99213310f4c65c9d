package repository

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type marketRepo struct{}

// NewMarketRepository returns a pgx-backed MarketRepository.
func NewMarketRepository() MarketRepository {
	return &marketRepo{}
}

const marketColumns = `id, kind, sport, home, away, name, commence_time, status,
       home_score, away_score, created_at, updated_at`

func (r *marketRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Market, error) {
	row := db.QueryRow(ctx, `
		SELECT `+marketColumns+`
		FROM markets WHERE id = $1`, id)
	return scanMarket(row)
}

func (r *marketRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Market, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+marketColumns+`
		FROM markets WHERE id = $1 FOR UPDATE`, id)
	return scanMarket(row)
}

func (r *marketRepo) Upsert(ctx context.Context, db DBTX, m *domain.Market) error {
	_, err := db.Exec(ctx, `
		INSERT INTO markets (id, kind, sport, home, away, name, commence_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (id) DO UPDATE SET
		  sport = EXCLUDED.sport,
		  home = EXCLUDED.home,
		  away = EXCLUDED.away,
		  name = EXCLUDED.name,
		  commence_time = EXCLUDED.commence_time,
		  updated_at = now()`,
		m.ID, string(m.Kind), m.Sport, m.Home, m.Away, m.Name, m.CommenceTime, string(m.Status))
	if err != nil {
		return fmt.Errorf("upsert market: %w", err)
	}
	return nil
}

func (r *marketRepo) ApplyScores(ctx context.Context, tx pgx.Tx, update domain.ScoreUpdate) (*domain.Market, error) {
	row := tx.QueryRow(ctx, `
		UPDATE markets SET
		  status = $1,
		  home_score = $2,
		  away_score = $3,
		  updated_at = now()
		WHERE id = $4
		RETURNING `+marketColumns,
		string(update.Status), update.HomeScore, update.AwayScore, update.MarketID)
	return scanMarket(row)
}

func (r *marketRepo) ListUpcoming(ctx context.Context, db DBTX, sport string, limit int) ([]domain.Market, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE status <> 'final'
		  AND ($1 = '' OR sport = $1)
		ORDER BY commence_time ASC
		LIMIT $2`, sport, limit)
	if err != nil {
		return nil, fmt.Errorf("list upcoming markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		var m domain.Market
		err := rows.Scan(
			&m.ID, &m.Kind, &m.Sport, &m.Home, &m.Away, &m.Name,
			&m.CommenceTime, &m.Status, &m.HomeScore, &m.AwayScore,
			&m.CreatedAt, &m.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan market row: %w", err)
		}
		markets = append(markets, m)
	}
	return markets, rows.Err()
}

func scanMarket(row pgx.Row) (*domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.Kind, &m.Sport, &m.Home, &m.Away, &m.Name,
		&m.CommenceTime, &m.Status, &m.HomeScore, &m.AwayScore,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan market: %w", err)
	}
	return &m, nil
}
