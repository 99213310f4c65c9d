//go:build integration

package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

// DecodeJSON reads and decodes a JSON response body into dst.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
}

// AssertStatus checks that the response has the expected HTTP status code.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertBalances queries the accounts table and asserts balance and escrow.
func AssertBalances(t *testing.T, env *TestEnv, accountID uuid.UUID, balance, escrow int64) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var bal, esc int64
	err := env.Pool.QueryRow(ctx,
		"SELECT balance, escrow FROM accounts WHERE id = $1", accountID).Scan(&bal, &esc)
	if err != nil {
		t.Fatalf("AssertBalances: query: %v", err)
	}
	if bal != balance {
		t.Errorf("balance: expected %d, got %d", balance, bal)
	}
	if esc != escrow {
		t.Errorf("escrow: expected %d, got %d", escrow, esc)
	}
}

// CountEntries returns the number of ledger entries for an account.
func CountEntries(t *testing.T, env *TestEnv, accountID uuid.UUID) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE account_id = $1", accountID).Scan(&count)
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	return count
}

// CountOutboxEvents returns the number of outbox events of the given type.
func CountOutboxEvents(t *testing.T, env *TestEnv, eventType string) int {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	err := env.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM event_outbox WHERE event_type = $1", eventType).Scan(&count)
	if err != nil {
		t.Fatalf("CountOutboxEvents: %v", err)
	}
	return count
}
