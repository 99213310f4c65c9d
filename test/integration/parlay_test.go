//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/bookieverse/platform/internal/domain"
	"github.com/bookieverse/platform/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createParlay(t *testing.T, env *testutil.TestEnv, token string, offerIDs []uuid.UUID, amount int64) *http.Response {
	t.Helper()
	return env.POST("/parlays", map[string]interface{}{
		"offer_ids": offerIDs,
		"amount":    amount,
	}, token)
}

func TestCreateParlay_DebitsStakeAndSpreadsAction(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("parlay_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("parlay_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	offerA := env.CreateOffer(bookieToken, marketID, 200)
	offerB := env.CreateOffer(bookieToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA, offerB}, 100)
	testutil.AssertStatus(t, resp, http.StatusCreated)

	var parlay struct {
		ID              string `json:"id"`
		Amount          int64  `json:"amount"`
		PotentialPayout int64  `json:"potential_payout"`
		Status          string `json:"status"`
	}
	testutil.DecodeJSON(t, resp, &parlay)
	assert.Equal(t, "pending", parlay.Status)
	assert.Greater(t, parlay.PotentialPayout, parlay.Amount)

	testutil.AssertBalances(t, env, bettorID, 900, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.parlay.created"))

	// Each leg absorbs half the stake as action.
	for _, offerID := range []uuid.UUID{offerA, offerB} {
		r := env.GET("/offers/" + offerID.String())
		var offer struct {
			TotalAction int64 `json:"total_action"`
		}
		testutil.DecodeJSON(t, r, &offer)
		assert.Equal(t, int64(50), offer.TotalAction)
	}
}

func TestCreateParlay_UnevenSplitRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("uneven_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("uneven_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	offerA := env.CreateOffer(bookieToken, marketID, 200)
	offerB := env.CreateOffer(bookieToken, marketID, 200)
	offerC := env.CreateOffer(bookieToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA, offerB, offerC}, 100)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestCreateParlay_TooFewLegs(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("single_leg_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("single_leg_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))
	offerA := env.CreateOffer(bookieToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA}, 100)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestCreateParlay_OwnLineRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("own_leg_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("own_leg_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	theirOffer := env.CreateOffer(bookieToken, marketID, 200)
	myOffer := env.CreateOffer(bettorToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{theirOffer, myOffer}, 100)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusConflict)
}

func TestCreateParlay_DuplicateLegRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("dup_leg_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("dup_leg_bettor", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))
	offerA := env.CreateOffer(bookieToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA, offerA}, 100)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

// createFutureOffer posts a futures line; futures have no score rule, so
// manual settlement is their only resolution path.
func createFutureOffer(t *testing.T, env *testutil.TestEnv, token string, marketID uuid.UUID, side string, amount int64) uuid.UUID {
	t.Helper()
	resp := env.POST("/offers", map[string]interface{}{
		"market_id": marketID,
		"type":      "future",
		"side":      side,
		"value":     0,
		"amount":    amount,
	}, token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var offer struct {
		ID uuid.UUID `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &offer)
	return offer.ID
}

func TestManualSettle_ResolvesParlayLegs(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("prop_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("prop_bettor", "securepass123")
	directToken, _ := env.RegisterAccount("direct_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))

	offerA := createFutureOffer(t, env, bookieToken, marketID, "celtics", 200)
	offerB := createFutureOffer(t, env, bookieToken, marketID, "over_50_wins", 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA, offerB}, 100)
	var parlay struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &parlay)

	// Direct wagers on both legs give each offer a manual settlement path.
	wagerA := env.TakeOffer(directToken, offerA, 50)
	wagerB := env.TakeOffer(directToken, offerB, 50)

	// The bookie loses both legs, so the parlay bettor's legs both hit.
	env.SettleWager(bookieToken, wagerA, "bettor")
	env.SettleWager(bookieToken, wagerB, "bettor")

	got := env.AuthGET("/parlays/"+parlay.ID, bettorToken)
	var settled struct {
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, got, &settled)
	require.Equal(t, "won", settled.Status)

	// Stake 100 over two legs pays 100 * 2.5^2 * 0.95 = 593.
	testutil.AssertBalances(t, env, bettorID, 1493, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.parlay.settled"))
}

func TestManualSettle_ScoreLegsResolveFromFinalScoreOnly(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("spread_leg_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("spread_leg_bettor", "securepass123")
	directToken, _ := env.RegisterAccount("spread_leg_taker", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	offerA := env.CreateOffer(bookieToken, marketID, 200)
	offerB := env.CreateOffer(bookieToken, marketID, 200)

	resp := createParlay(t, env, bettorToken, []uuid.UUID{offerA, offerB}, 100)
	var parlay struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, resp, &parlay)

	// Two cooperating parties settle their spread wagers against the bookie
	// before the game ends. Spread legs carry a score rule, so these
	// settlements must not touch the parlay riding the same offers.
	wagerA := env.TakeOffer(directToken, offerA, 50)
	wagerB := env.TakeOffer(directToken, offerB, 50)
	env.SettleWager(bookieToken, wagerA, "bettor")
	env.SettleWager(bookieToken, wagerB, "bettor")

	pending := env.AuthGET("/parlays/"+parlay.ID, bettorToken)
	var mid struct {
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, pending, &mid)
	require.Equal(t, "pending", mid.Status)

	// Home wins by 10, so home -3.5 covers and both parlay legs miss.
	markets := newMarketService(env)
	err := markets.ApplyScoreUpdate(context.Background(), domain.ScoreUpdate{
		MarketID:  marketID,
		Status:    domain.MarketFinal,
		HomeScore: 110,
		AwayScore: 100,
		FeedTime:  time.Now(),
	})
	require.NoError(t, err)

	got := env.AuthGET("/parlays/"+parlay.ID, bettorToken)
	var settled struct {
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, got, &settled)
	assert.Equal(t, "lost", settled.Status)
	testutil.AssertBalances(t, env, bettorID, 900, 0)
}
