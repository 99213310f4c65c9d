package settlement

import (
	"testing"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineWinnerSpread(t *testing.T) {
	tests := []struct {
		name       string
		bookieSide domain.Side
		value      float64
		home, away int
		want       domain.Winner
	}{
		// Bookie home with line -3: adjusted = (home-away) + (-3)
		{"home covers", domain.SideHome, -3, 110, 100, domain.WinnerBookie},
		{"home fails to cover", domain.SideHome, -3, 102, 100, domain.WinnerBettor},
		{"home lands on line", domain.SideHome, -3, 103, 100, domain.WinnerPush},
		// Bookie home getting points
		{"home plus line", domain.SideHome, 4.5, 100, 104, domain.WinnerBookie},
		{"home plus line blown out", domain.SideHome, 4.5, 100, 105, domain.WinnerBettor},
		// Bookie away with line -3: adjusted = (home-away) - (-3)
		{"away covers", domain.SideAway, -3, 100, 104, domain.WinnerBookie},
		{"away fails", domain.SideAway, -3, 100, 101, domain.WinnerBettor},
		{"away lands on line", domain.SideAway, 3, 103, 100, domain.WinnerPush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetermineWinner(domain.WagerSpread, tt.bookieSide, tt.value, tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineWinnerMoneyline(t *testing.T) {
	tests := []struct {
		name       string
		bookieSide domain.Side
		home, away int
		want       domain.Winner
	}{
		{"home side home wins", domain.SideHome, 110, 100, domain.WinnerBookie},
		{"home side home loses", domain.SideHome, 100, 110, domain.WinnerBettor},
		{"away side away wins", domain.SideAway, 100, 110, domain.WinnerBookie},
		{"away side away loses", domain.SideAway, 110, 100, domain.WinnerBettor},
		{"tie pushes", domain.SideHome, 100, 100, domain.WinnerPush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetermineWinner(domain.WagerMoneyline, tt.bookieSide, 0, tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineWinnerTotal(t *testing.T) {
	tests := []struct {
		name       string
		bookieSide domain.Side
		value      float64
		home, away int
		want       domain.Winner
	}{
		{"over hits", domain.SideOver, 210.5, 110, 101, domain.WinnerBookie},
		{"over misses", domain.SideOver, 210.5, 105, 100, domain.WinnerBettor},
		{"under hits", domain.SideUnder, 210.5, 105, 100, domain.WinnerBookie},
		{"under misses", domain.SideUnder, 210.5, 110, 101, domain.WinnerBettor},
		{"lands on integer total", domain.SideOver, 210, 110, 100, domain.WinnerPush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetermineWinner(domain.WagerTotal, tt.bookieSide, tt.value, tt.home, tt.away)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetermineWinnerNoScoreRule(t *testing.T) {
	_, err := DetermineWinner(domain.WagerProposition, domain.Side("yes"), 0, 1, 0)
	require.Error(t, err)

	_, err = DetermineWinner(domain.WagerFuture, domain.SideHome, 0, 1, 0)
	require.Error(t, err)
}

func TestPayout(t *testing.T) {
	// payout = stake x 2 x 0.95
	assert.Equal(t, int64(190), Payout(100))
	assert.Equal(t, int64(1900), Payout(1000))
	assert.Equal(t, int64(1), Payout(1)) // 1.9 truncated

	// Zero-sum: payout + rake == pooled stake.
	for _, stake := range []int64{1, 7, 100, 999, 12345} {
		assert.Equal(t, stake*2, Payout(stake)+Rake(stake), "stake %d", stake)
	}
}

func TestRake(t *testing.T) {
	assert.Equal(t, int64(10), Rake(100))
	assert.Equal(t, int64(100), Rake(1000))
}

func TestParlayPayout(t *testing.T) {
	// stake x 2.5^legs x 0.95
	assert.Equal(t, int64(593), ParlayPayout(100, 2))   // 100 * 6.25 * 0.95 = 593.75
	assert.Equal(t, int64(1484), ParlayPayout(100, 3))  // 100 * 15.625 * 0.95
	assert.Equal(t, int64(100), ParlayPayout(100, 0))   // all legs pushed
}

func TestResolveParlay(t *testing.T) {
	t.Run("all legs won", func(t *testing.T) {
		out := ResolveParlay(100, []domain.Winner{domain.WinnerBettor, domain.WinnerBettor})
		assert.Equal(t, domain.ParlayWon, out.Status)
		assert.Equal(t, 2, out.EffectiveLegs)
		assert.Equal(t, ParlayPayout(100, 2), out.Payout)
	})

	t.Run("any bookie leg loses the parlay", func(t *testing.T) {
		out := ResolveParlay(100, []domain.Winner{domain.WinnerBettor, domain.WinnerBookie, domain.WinnerBettor})
		assert.Equal(t, domain.ParlayLost, out.Status)
		assert.Zero(t, out.Payout)
	})

	t.Run("pushed leg shrinks multiplier", func(t *testing.T) {
		out := ResolveParlay(100, []domain.Winner{domain.WinnerBettor, domain.WinnerPush, domain.WinnerBettor})
		assert.Equal(t, domain.ParlayWon, out.Status)
		assert.Equal(t, 2, out.EffectiveLegs)
		assert.Equal(t, ParlayPayout(100, 2), out.Payout)
	})

	t.Run("all legs pushed returns stake", func(t *testing.T) {
		out := ResolveParlay(100, []domain.Winner{domain.WinnerPush, domain.WinnerPush})
		assert.Equal(t, domain.ParlayWon, out.Status)
		assert.Equal(t, int64(100), out.Payout)
	})
}
