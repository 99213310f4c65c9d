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

type entryRepo struct{}

// NewLedgerEntryRepository returns a pgx-backed LedgerEntryRepository.
func NewLedgerEntryRepository() LedgerEntryRepository {
	return &entryRepo{}
}

const entryColumns = `id, account_id, type, amount, balance_after, escrow_after,
       external_id, source, offer_id, wager_id, metadata, created_at`

func (r *entryRepo) FindExisting(ctx context.Context, db DBTX, key domain.IdempotencyKey) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1 AND source = $2 AND external_id = $3`,
		key.AccountID, key.Source, key.ExternalID)
	return scanEntry(row)
}

func (r *entryRepo) Insert(ctx context.Context, db DBTX, params domain.PostEntryParams, balances domain.Balances) (*domain.LedgerEntry, error) {
	meta := params.Metadata
	if meta == nil {
		meta = json.RawMessage(`{}`)
	}

	row := db.QueryRow(ctx, `
		INSERT INTO ledger_entries
		  (account_id, type, amount, balance_after, escrow_after,
		   external_id, source, offer_id, wager_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+entryColumns,
		params.AccountID,
		string(params.Type),
		params.Amount,
		balances.Balance,
		balances.Escrow,
		params.ExternalID,
		params.Source,
		params.OfferID,
		params.WagerID,
		meta,
	)
	return scanEntry(row)
}

func (r *entryRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.LedgerEntry, error) {
	row := db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries WHERE id = $1`, id)
	return scanEntry(row)
}

func (r *entryRepo) ListByAccount(ctx context.Context, db DBTX, accountID uuid.UUID, cursor *string, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = db.Query(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE account_id = $1
			  AND (created_at, id) <= ((SELECT created_at, id FROM ledger_entries WHERE id = $2))
			ORDER BY created_at DESC, id DESC
			LIMIT $3`, accountID, *cursor, limit)
	} else {
		rows, err = db.Query(ctx, `
			SELECT `+entryColumns+`
			FROM ledger_entries
			WHERE account_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2`, accountID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		err := rows.Scan(
			&e.ID, &e.AccountID, &e.Type, &e.Amount,
			&e.BalanceAfter, &e.EscrowAfter,
			&e.ExternalID, &e.Source, &e.OfferID, &e.WagerID,
			&e.Metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *entryRepo) SumRiskSince(ctx context.Context, db DBTX, accountID uuid.UUID, since time.Time) (int64, error) {
	var total int64
	err := db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
		  AND type IN ('escrow_hold', 'stake_debit')
		  AND created_at >= $2`, accountID, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum risk since: %w", err)
	}
	return total, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.ID, &e.AccountID, &e.Type, &e.Amount,
		&e.BalanceAfter, &e.EscrowAfter,
		&e.ExternalID, &e.Source, &e.OfferID, &e.WagerID,
		&e.Metadata, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return &e, nil
}
