package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type accountRepo struct{}

// NewAccountRepository returns a pgx-backed AccountRepository.
func NewAccountRepository() AccountRepository {
	return &accountRepo{}
}

const accountColumns = `id, username, balance, escrow, profit, wins, losses, lines_created,
       total_earned, total_purchased, last_accrual_at, created_at, updated_at`

func (r *accountRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *accountRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Account, error) {
	row := db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

func (r *accountRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (r *accountRepo) Create(ctx context.Context, db DBTX, account *domain.Account) error {
	_, err := db.Exec(ctx, `
		INSERT INTO accounts
		  (id, username, balance, escrow, profit, wins, losses, lines_created,
		   total_earned, total_purchased, last_accrual_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		account.ID,
		account.Username,
		account.Balance,
		account.Escrow,
		account.Profit,
		account.Wins,
		account.Losses,
		account.LinesCreated,
		account.TotalEarned,
		account.TotalPurchased,
		account.LastAccrualAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// UpdateBalances uses server-side arithmetic with dynamic SET clauses so
// concurrent settlements never read-modify-write stale balances.
func (r *accountRepo) UpdateBalances(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, delta domain.BalanceUpdate) (*domain.Account, error) {
	setClauses := []string{"updated_at = now()"}
	args := []interface{}{}
	argIdx := 1

	addDelta := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = %s + $%d", column, column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if delta.HasBalanceDelta() {
		addDelta("balance", delta.Balance)
	}
	if delta.HasEscrowDelta() {
		addDelta("escrow", delta.Escrow)
	}
	if delta.Profit != 0 {
		addDelta("profit", delta.Profit)
	}
	if delta.Wins != 0 {
		addDelta("wins", delta.Wins)
	}
	if delta.Losses != 0 {
		addDelta("losses", delta.Losses)
	}
	if delta.LinesCreated != 0 {
		addDelta("lines_created", delta.LinesCreated)
	}
	if delta.TotalEarned != 0 {
		addDelta("total_earned", delta.TotalEarned)
	}
	if delta.TotalPurchased != 0 {
		addDelta("total_purchased", delta.TotalPurchased)
	}
	if delta.AdvanceAccrual {
		setClauses = append(setClauses, "last_accrual_at = now()")
	}

	args = append(args, accountID)
	query := fmt.Sprintf(`
		UPDATE accounts SET %s
		WHERE id = $%d
		RETURNING `+accountColumns,
		strings.Join(setClauses, ", "), argIdx)

	row := tx.QueryRow(ctx, query, args...)
	return scanAccount(row)
}

func (r *accountRepo) SearchByUsername(ctx context.Context, db DBTX, query string, limit int) ([]domain.Account, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY username ASC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *accountRepo) ListByProfit(ctx context.Context, db DBTX, limit int) ([]domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := db.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY profit DESC, username ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts by profit: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *accountRepo) ListIDs(ctx context.Context, db DBTX) ([]uuid.UUID, error) {
	rows, err := db.Query(ctx, `SELECT id FROM accounts ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list account ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Username, &a.Balance, &a.Escrow, &a.Profit,
		&a.Wins, &a.Losses, &a.LinesCreated,
		&a.TotalEarned, &a.TotalPurchased,
		&a.LastAccrualAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	var accounts []domain.Account
	for rows.Next() {
		var a domain.Account
		err := rows.Scan(
			&a.ID, &a.Username, &a.Balance, &a.Escrow, &a.Profit,
			&a.Wins, &a.Losses, &a.LinesCreated,
			&a.TotalEarned, &a.TotalPurchased,
			&a.LastAccrualAt, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}
