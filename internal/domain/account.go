package domain

import (
	"time"

	"github.com/google/uuid"
)

// Economy constants. Amounts are whole virtual credits (int64).
const (
	StartingBalance int64 = 1000
	HourlyRate      int64 = 5
	MaxOfflineHours       = 72
)

// Balances is the two-column money model: spendable balance plus credits held
// in escrow against the account's open offers.
type Balances struct {
	Balance int64 `json:"balance"`
	Escrow  int64 `json:"escrow"`
}

// Account represents an accounts row. Never deleted once created.
type Account struct {
	ID uuid.UUID `json:"id"`
	Balances
	Username       string    `json:"username"`
	Profit         int64     `json:"profit"`
	Wins           int       `json:"wins"`
	Losses         int       `json:"losses"`
	LinesCreated   int       `json:"lines_created"`
	TotalEarned    int64     `json:"total_earned"`
	TotalPurchased int64     `json:"total_purchased"`
	LastAccrualAt  time.Time `json:"last_accrual_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AuthUser holds credentials from auth_users.
type AuthUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
