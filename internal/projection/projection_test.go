package projection

import (
	"context"
	"testing"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_SetGetDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.Error(t, err)
}

func TestBookieStats_Roundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	stats := &domain.BookieStats{
		ID:       uuid.New(),
		Username: "sharpshooter",
		Wins:     12,
		Losses:   3,
		Profit:   450,
		Rating:   4.5,
	}
	require.NoError(t, PutBookieStats(ctx, store, stats))

	got, err := GetBookieStats(ctx, store, stats.ID)
	require.NoError(t, err)
	assert.Equal(t, stats.Username, got.Username)
	assert.Equal(t, stats.Profit, got.Profit)

	require.NoError(t, InvalidateBookieStats(ctx, store, stats.ID))
	_, err = GetBookieStats(ctx, store, stats.ID)
	assert.Error(t, err)
}

func TestLeaderboard_Roundtrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	accounts := []domain.Account{
		{ID: uuid.New(), Username: "first", Profit: 900},
		{ID: uuid.New(), Username: "second", Profit: 400},
	}
	require.NoError(t, PutLeaderboard(ctx, store, 10, accounts))

	got, err := GetLeaderboard(ctx, store, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Username)

	// A different page size is a separate key.
	_, err = GetLeaderboard(ctx, store, 25)
	assert.Error(t, err)
}
