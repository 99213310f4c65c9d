//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/bookieverse/platform/internal/service"
	"github.com/bookieverse/platform/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMarket_GameAndFuture(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterAccount("market_maker", "securepass123")

	game := env.POST("/markets", map[string]interface{}{
		"kind":          "game",
		"sport":         "basketball_nba",
		"home":          "Celtics",
		"away":          "Lakers",
		"commence_time": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, token)
	testutil.AssertStatus(t, game, http.StatusCreated)
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, game, &created)
	assert.Equal(t, "upcoming", created.Status)

	// A game market without participants is malformed.
	bad := env.POST("/markets", map[string]interface{}{
		"kind":          "game",
		"sport":         "basketball_nba",
		"commence_time": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}, token)
	bad.Body.Close()
	testutil.AssertStatus(t, bad, http.StatusBadRequest)

	future := env.POST("/markets", map[string]interface{}{
		"kind":          "future",
		"sport":         "basketball_nba",
		"name":          "2027 NBA Champion",
		"commence_time": time.Now().Add(30 * 24 * time.Hour).Format(time.RFC3339),
	}, token)
	future.Body.Close()
	testutil.AssertStatus(t, future, http.StatusCreated)

	list := env.GET("/markets?sport=basketball_nba")
	var markets []struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, list, &markets)
	assert.Len(t, markets, 2)
}

func TestScoreUpdate_FinalSettlesSpreadWagers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("auto_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("auto_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	// Bookie takes home -3.5; the bettor gets away +3.5.
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	markets := newMarketService(env)

	// Home wins by 10: home -3.5 covers, so the bookie's side hits.
	err := markets.ApplyScoreUpdate(context.Background(), domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 110,
		AwayScore: 100,
		FeedTime:  time.Now(),
	})
	require.NoError(t, err)

	testutil.AssertBalances(t, env, bookieID, 1090, 0)
	testutil.AssertBalances(t, env, bettorID, 900, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.market.finalized"))

	resp := env.AuthGET("/wagers/"+wagerID.String(), bettorToken)
	defer resp.Body.Close()
	var wager struct {
		Status      string `json:"status"`
		Winner      string `json:"winner"`
		AutoSettled bool   `json:"auto_settled"`
	}
	testutil.DecodeJSON(t, resp, &wager)
	assert.Equal(t, "settled", wager.Status)
	assert.Equal(t, "bookie", wager.Winner)
	assert.True(t, wager.AutoSettled)
}

func TestScoreUpdate_FinalReleasesUnmatchedEscrow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("release_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("release_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	// 40 of the 100 escrow matches; 60 must come back at finalization.
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	env.TakeOffer(bettorToken, offerID, 40)
	testutil.AssertBalances(t, env, bookieID, 900, 60)

	markets := newMarketService(env)
	err := markets.ApplyScoreUpdate(context.Background(), domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 95,
		AwayScore: 100,
		FeedTime:  time.Now(),
	})
	require.NoError(t, err)

	// Away won outright, so home -3.5 misses and the bettor collects 76 on a
	// 40 stake. The bookie's unmatched 60 returns alongside.
	testutil.AssertBalances(t, env, bookieID, 960, 0)
}

func TestScoreUpdate_ExactLineIsPush(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("push_auto_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("push_auto_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	// A whole-number total can land exactly on the line.
	resp := env.POST("/offers", map[string]interface{}{
		"market_id": marketID,
		"type":      "total",
		"side":      "over",
		"value":     200.0,
		"amount":    100,
	}, bookieToken)
	var offer struct {
		ID uuid.UUID `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &offer)
	env.TakeOffer(bettorToken, offer.ID, 100)

	markets := newMarketService(env)
	err := markets.ApplyScoreUpdate(context.Background(), domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 100,
		AwayScore: 100,
		FeedTime:  time.Now(),
	})
	require.NoError(t, err)

	testutil.AssertBalances(t, env, bookieID, 1000, 0)
	testutil.AssertBalances(t, env, bettorID, 1000, 0)
}

func TestScoreUpdate_DuplicateDeliverySettlesOnce(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("replay_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("replay_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	env.TakeOffer(bettorToken, offerID, 100)

	markets := newMarketService(env)
	update := domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 90,
		AwayScore: 100,
		FeedTime:  time.Now(),
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, markets.ApplyScoreUpdate(context.Background(), update))
	}

	// Away winner: the bettor's payout posts exactly once.
	testutil.AssertBalances(t, env, bettorID, 1090, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.market.finalized"))
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.wager.settled"))
}

func TestScoreUpdate_FinalMarketResweepsPendingWagers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("resweep_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("resweep_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	// The market is already final with scores but the wager never settled,
	// the state left behind when a settlement sweep dies partway through.
	_, err := env.Pool.Exec(context.Background(), `
		UPDATE markets SET status = 'final', home_score = 110, away_score = 100
		WHERE id = $1`, marketID)
	require.NoError(t, err)

	// The next feed delivery of the final score must pick the wager up.
	markets := newMarketService(env)
	err = markets.ApplyScoreUpdate(context.Background(), domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 110,
		AwayScore: 100,
		FeedTime:  time.Now(),
	})
	require.NoError(t, err)

	testutil.AssertBalances(t, env, bookieID, 1090, 0)
	testutil.AssertBalances(t, env, bettorID, 900, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.wager.settled"))

	resp := env.AuthGET("/wagers/"+wagerID.String(), bettorToken)
	defer resp.Body.Close()
	var wager struct {
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, resp, &wager)
	assert.Equal(t, "settled", wager.Status)
}

// newMarketService assembles the score ingestion path over the test pool, the
// same shape the poller binary wires up.
func newMarketService(env *testutil.TestEnv) *service.MarketService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	accountRepo := repository.NewAccountRepository()
	entryRepo := repository.NewLedgerEntryRepository()
	offerRepo := repository.NewOfferRepository()
	wagerRepo := repository.NewWagerRepository()
	marketRepo := repository.NewMarketRepository()
	outboxRepo := repository.NewOutboxRepository()

	engine := ledger.NewEngine(accountRepo, entryRepo, outboxRepo)
	settleSvc := service.NewSettleService(env.Pool, engine, wagerRepo, offerRepo, outboxRepo, logger)
	return service.NewMarketService(env.Pool, marketRepo, outboxRepo, settleSvc, guard.NewReplayGuard(), logger)
}
