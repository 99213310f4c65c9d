//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/bookieverse/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualSettle_BettorWins(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("settle_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("settle_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	env.SettleWager(bettorToken, wagerID, "bettor")

	// Pool is 200, rake is 5 percent, winner takes 190.
	testutil.AssertBalances(t, env, bettorID, 1090, 0)
	testutil.AssertBalances(t, env, bookieID, 900, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.wager.settled"))
}

func TestManualSettle_BookieWins(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("win_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("lose_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	env.SettleWager(bookieToken, wagerID, "bookie")

	testutil.AssertBalances(t, env, bookieID, 1090, 0)
	testutil.AssertBalances(t, env, bettorID, 900, 0)
}

func TestManualSettle_PushReturnsBothStakes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("push_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("push_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	env.SettleWager(bettorToken, wagerID, "push")

	testutil.AssertBalances(t, env, bookieID, 1000, 0)
	testutil.AssertBalances(t, env, bettorID, 1000, 0)
}

func TestManualSettle_SecondAttemptRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("double_bookie", "securepass123")
	bettorToken, bettorID := env.RegisterAccount("double_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	env.SettleWager(bettorToken, wagerID, "bettor")

	resp := env.POST("/wagers/"+wagerID.String()+"/settle",
		map[string]string{"winner": "bettor"}, bookieToken)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusConflict)

	// The payout posted exactly once.
	testutil.AssertBalances(t, env, bettorID, 1090, 0)
}

func TestManualSettle_NonPartyForbidden(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("party_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("party_bettor", "securepass123")
	strangerToken, _ := env.RegisterAccount("stranger", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	resp := env.POST("/wagers/"+wagerID.String()+"/settle",
		map[string]string{"winner": "bettor"}, strangerToken)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusForbidden)
}

func TestManualSettle_InvalidWinner(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("inv_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("inv_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	resp := env.POST("/wagers/"+wagerID.String()+"/settle",
		map[string]string{"winner": "nobody"}, bettorToken)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestListWagers_StatusFilter(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("list_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("list_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))

	offerA := env.CreateOffer(bookieToken, marketID, 100)
	offerB := env.CreateOffer(bookieToken, marketID, 100)
	settledID := env.TakeOffer(bettorToken, offerA, 100)
	env.TakeOffer(bettorToken, offerB, 100)
	env.SettleWager(bettorToken, settledID, "push")

	resp := env.AuthGET("/wagers/mine?status=pending", bettorToken)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var pending []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	testutil.DecodeJSON(t, resp, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending", pending[0].Status)

	resp2 := env.AuthGET("/wagers/mine?status=settled", bettorToken)
	defer resp2.Body.Close()
	var settled []struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, resp2, &settled)
	require.Len(t, settled, 1)
	assert.Equal(t, settledID.String(), settled[0].ID)
}

func TestListWagers_BothPartiesSeeWager(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("both_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("both_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)

	for _, token := range []string{bookieToken, bettorToken} {
		resp := env.AuthGET("/wagers/mine", token)
		var wagers []struct {
			ID string `json:"id"`
		}
		testutil.DecodeJSON(t, resp, &wagers)
		require.Len(t, wagers, 1)
		assert.Equal(t, wagerID.String(), wagers[0].ID)
	}
}
