package ledger

import (
	"context"
	"fmt"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Engine provides the 3 foundational ledger operations:
//  1. LockAccountForUpdate: row-level pessimistic lock
//  2. FindExistingEntry: idempotency check
//  3. PostEntry: atomic balance update + append-only insert + outbox event
//
// Every money-moving command in the system delegates to these so that a
// matched wager's stake moves exactly once, even under concurrent access.
type Engine struct {
	accounts repository.AccountRepository
	entries  repository.LedgerEntryRepository
	outbox   repository.OutboxRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	accounts repository.AccountRepository,
	entries repository.LedgerEntryRepository,
	outbox repository.OutboxRepository,
) *Engine {
	return &Engine{
		accounts: accounts,
		entries:  entries,
		outbox:   outbox,
	}
}

// LockAccountForUpdate acquires a row-level lock and returns the account.
// Must be called within a transaction.
func (e *Engine) LockAccountForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Account, error) {
	account, err := e.accounts.LockForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, fmt.Errorf("lock account: %w", err)
	}
	if account == nil {
		return nil, domain.ErrNotFound("account", accountID.String())
	}
	return account, nil
}

// FindExistingEntry checks if an entry with the same idempotency key exists.
// Returns nil if no duplicate found.
func (e *Engine) FindExistingEntry(ctx context.Context, tx pgx.Tx, key domain.IdempotencyKey) (*domain.LedgerEntry, error) {
	existing, err := e.entries.FindExisting(ctx, tx, key)
	if err != nil {
		return nil, fmt.Errorf("find existing entry: %w", err)
	}
	return existing, nil
}

// PostEntry atomically updates account balances and inserts a ledger entry.
// This is the core write primitive: all commands delegate to this.
//
// Steps:
//  1. Update account columns using server-side arithmetic (dynamic SET clauses)
//  2. Insert ledger entry with the post-update balance snapshot
//  3. Insert outbox event
//
// All 3 steps run within the caller's transaction.
func (e *Engine) PostEntry(ctx context.Context, tx pgx.Tx, params domain.PostEntryParams) (*domain.LedgerEntry, *domain.Account, error) {
	updated, err := e.accounts.UpdateBalances(ctx, tx, params.AccountID, params.Update)
	if err != nil {
		return nil, nil, fmt.Errorf("update balances: %w", err)
	}

	entry, err := e.entries.Insert(ctx, tx, params, updated.Balances)
	if err != nil {
		return nil, nil, fmt.Errorf("insert entry: %w", err)
	}

	// Same transaction for atomicity.
	event := domain.NewEntryPostedEvent(entry)
	if err := e.outbox.Insert(ctx, tx, event); err != nil {
		return nil, nil, fmt.Errorf("insert outbox event: %w", err)
	}

	return entry, updated, nil
}
