package projection

import (
	"context"
	"fmt"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
)

// Profile and leaderboard reads are the hottest queries and tolerate short
// staleness, so they are served from cached projections.
const (
	statsTTL       = time.Minute
	leaderboardTTL = 30 * time.Second
)

func statsKey(accountID uuid.UUID) string {
	return fmt.Sprintf("projection:bookie_stats:%s", accountID)
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("projection:leaderboard:%d", limit)
}

// PutBookieStats caches an account's public profile stats.
func PutBookieStats(ctx context.Context, store Store, stats *domain.BookieStats) error {
	return SetJSON(ctx, store, statsKey(stats.ID), stats, statsTTL)
}

// GetBookieStats retrieves cached profile stats. Returns an error on a miss.
func GetBookieStats(ctx context.Context, store Store, accountID uuid.UUID) (*domain.BookieStats, error) {
	var stats domain.BookieStats
	if err := GetJSON(ctx, store, statsKey(accountID), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateBookieStats drops the cached profile after a rating or follow
// changes it.
func InvalidateBookieStats(ctx context.Context, store Store, accountID uuid.UUID) error {
	return store.Delete(ctx, statsKey(accountID))
}

// PutLeaderboard caches a leaderboard page.
func PutLeaderboard(ctx context.Context, store Store, limit int, accounts []domain.Account) error {
	return SetJSON(ctx, store, leaderboardKey(limit), accounts, leaderboardTTL)
}

// GetLeaderboard retrieves a cached leaderboard page. Returns an error on a miss.
func GetLeaderboard(ctx context.Context, store Store, limit int) ([]domain.Account, error) {
	var accounts []domain.Account
	if err := GetJSON(ctx, store, leaderboardKey(limit), &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}
