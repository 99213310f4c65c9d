package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Accrual Tests ---

func TestComputeAccrual(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		last    time.Time
		want    int64
	}{
		{"zero last accrues nothing", time.Time{}, 0},
		{"under one hour", now.Add(-59 * time.Minute), 0},
		{"exactly one hour", now.Add(-1 * time.Hour), HourlyRate},
		{"fractional remainder discarded", now.Add(-90 * time.Minute), HourlyRate},
		{"three and a half hours", now.Add(-210 * time.Minute), 3 * HourlyRate},
		{"clamped to offline window", now.Add(-200 * time.Hour), MaxOfflineHours * HourlyRate},
		{"exactly at window", now.Add(-72 * time.Hour), 72 * HourlyRate},
		{"future last is ignored", now.Add(time.Hour), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAccrual(tt.last, now))
		})
	}
}

func TestComputeAccrualRepeatedCallNoOp(t *testing.T) {
	start := time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC)
	now := start.Add(2*time.Hour + 20*time.Minute)

	first := ComputeAccrual(start, now)
	require.Equal(t, 2*HourlyRate, first)

	// After a real accrual the timestamp advances to now; a second call with
	// no time passing credits nothing.
	second := ComputeAccrual(now, now)
	assert.Zero(t, second)
}

// --- Market Lock Tests ---

func TestMarketIsLockedAt(t *testing.T) {
	now := time.Date(2026, 2, 14, 19, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		market Market
		want   bool
	}{
		{"upcoming before start", Market{Status: MarketUpcoming, CommenceTime: now.Add(2 * time.Hour)}, false},
		{"upcoming at start", Market{Status: MarketUpcoming, CommenceTime: now}, true},
		{"upcoming after start", Market{Status: MarketUpcoming, CommenceTime: now.Add(-time.Minute)}, true},
		{"live always locked", Market{Status: MarketLive, CommenceTime: now.Add(time.Hour)}, true},
		{"final always locked", Market{Status: MarketFinal}, true},
		{"malformed commence time not locked", Market{Status: MarketUpcoming}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.market.IsLockedAt(now))
		})
	}
}

func TestMarketDisplayName(t *testing.T) {
	game := Market{Kind: MarketGame, Home: "Lakers", Away: "Warriors"}
	assert.Equal(t, "Warriors @ Lakers", game.DisplayName())

	future := Market{Kind: MarketFuture, Name: "NBA Championship Winner"}
	assert.Equal(t, "NBA Championship Winner", future.DisplayName())
}

// --- Offer Cap Tests ---

func TestOfferCheckCaps(t *testing.T) {
	intPtr := func(n int) *int { return &n }
	i64Ptr := func(n int64) *int64 { return &n }

	t.Run("no caps configured", func(t *testing.T) {
		o := Offer{Amount: 100}
		require.NoError(t, o.CheckCaps(100))
	})

	t.Run("bettor cap reached", func(t *testing.T) {
		o := Offer{MaxBettors: intPtr(1), CurrentBettors: 1}
		err := o.CheckCaps(100)
		require.Error(t, err)
		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "CONSTRAINT_VIOLATION", appErr.Code)
	})

	t.Run("under bettor cap", func(t *testing.T) {
		o := Offer{MaxBettors: intPtr(2), CurrentBettors: 1}
		require.NoError(t, o.CheckCaps(100))
	})

	t.Run("per-user cap exceeded", func(t *testing.T) {
		o := Offer{MaxBetPerUser: i64Ptr(50)}
		require.Error(t, o.CheckCaps(100))
	})

	t.Run("total action cap exceeded", func(t *testing.T) {
		o := Offer{MaxTotalAction: i64Ptr(250), TotalAction: 200}
		require.Error(t, o.CheckCaps(100))
		require.NoError(t, o.CheckCaps(50))
	})
}

// --- Side Tests ---

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideAway, SideHome.Opposite())
	assert.Equal(t, SideHome, SideAway.Opposite())
	assert.Equal(t, SideUnder, SideOver.Opposite())
	assert.Equal(t, SideOver, SideUnder.Opposite())
}

// --- Validator Tests ---

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		wantErr  bool
	}{
		{"valid", "sharp_bettor", false},
		{"valid with hyphen", "book-maker99", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"spaces", "two words", true},
		{"special chars", "user@name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateRating(t *testing.T) {
	for r := 1; r <= 5; r++ {
		require.NoError(t, ValidateRating(r))
	}
	require.Error(t, ValidateRating(0))
	require.Error(t, ValidateRating(6))
	require.Error(t, ValidateRating(-1))
}

func TestValidateParlayLegCount(t *testing.T) {
	require.Error(t, ValidateParlayLegCount(1))
	require.NoError(t, ValidateParlayLegCount(2))
	require.NoError(t, ValidateParlayLegCount(10))
	require.Error(t, ValidateParlayLegCount(11))
}

func TestValidateSideForType(t *testing.T) {
	require.NoError(t, ValidateSideForType(WagerSpread, SideHome))
	require.NoError(t, ValidateSideForType(WagerTotal, SideOver))
	require.Error(t, ValidateSideForType(WagerTotal, SideHome))
	require.Error(t, ValidateSideForType(WagerMoneyline, SideOver))
	require.NoError(t, ValidateSideForType(WagerProposition, Side("yes")))
	require.Error(t, ValidateSideForType(WagerType("teaser"), SideHome))
}

// --- Error Tests ---

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := ErrInternal("something broke", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
}

func TestErrInvalidStateStatus(t *testing.T) {
	err := ErrInvalidState("wager already settled")
	assert.Equal(t, 409, err.Status)
	assert.Equal(t, "INVALID_STATE", err.Code)
}
