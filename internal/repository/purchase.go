package repository

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type purchaseRepo struct{}

// NewPurchaseRepository returns a pgx-backed PurchaseRepository.
func NewPurchaseRepository() PurchaseRepository {
	return &purchaseRepo{}
}

func (r *purchaseRepo) FindBySessionID(ctx context.Context, db DBTX, sessionID string) (*domain.Purchase, error) {
	row := db.QueryRow(ctx, `
		SELECT id, account_id, package_key, credits, amount_paid_cents, session_id, created_at
		FROM purchases WHERE session_id = $1`, sessionID)
	return scanPurchase(row)
}

func (r *purchaseRepo) Create(ctx context.Context, db DBTX, p *domain.Purchase) error {
	_, err := db.Exec(ctx, `
		INSERT INTO purchases (id, account_id, package_key, credits, amount_paid_cents, session_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.AccountID, p.PackageKey, p.Credits, p.AmountPaidCents, p.SessionID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

func (r *purchaseRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, limit int) ([]domain.Purchase, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT id, account_id, package_key, credits, amount_paid_cents, session_id, created_at
		FROM purchases
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []domain.Purchase
	for rows.Next() {
		var p domain.Purchase
		err := rows.Scan(&p.ID, &p.AccountID, &p.PackageKey, &p.Credits,
			&p.AmountPaidCents, &p.SessionID, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
	err := row.Scan(&p.ID, &p.AccountID, &p.PackageKey, &p.Credits,
		&p.AmountPaidCents, &p.SessionID, &p.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan purchase: %w", err)
	}
	return &p, nil
}
