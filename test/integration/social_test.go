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

func TestRateBookie_RequiresSettledWager(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("rated_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("rater_bettor", "securepass123")

	// No history yet: rating refused.
	resp := env.POST("/users/"+bookieID.String()+"/ratings",
		map[string]int{"rating": 5}, bettorToken)
	resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusForbidden)

	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)
	env.SettleWager(bettorToken, wagerID, "bookie")

	resp2 := env.POST("/users/"+bookieID.String()+"/ratings",
		map[string]int{"rating": 4}, bettorToken)
	defer resp2.Body.Close()
	testutil.AssertStatus(t, resp2, http.StatusCreated)
}

func TestRateBookie_RepeatReplacesEarlier(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("rerate_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("rerate_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)
	env.SettleWager(bettorToken, wagerID, "bookie")

	for _, rating := range []int{2, 5} {
		resp := env.POST("/users/"+bookieID.String()+"/ratings",
			map[string]int{"rating": rating}, bettorToken)
		testutil.AssertStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp := env.GET("/users/" + bookieID.String() + "/stats")
	defer resp.Body.Close()
	var stats struct {
		Rating      float64 `json:"rating"`
		RatingCount int     `json:"rating_count"`
	}
	testutil.DecodeJSON(t, resp, &stats)
	assert.Equal(t, 1, stats.RatingCount)
	assert.Equal(t, 5.0, stats.Rating)
}

func TestRateBookie_OutOfRange(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("range_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("range_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))
	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)
	env.SettleWager(bettorToken, wagerID, "push")

	resp := env.POST("/users/"+bookieID.String()+"/ratings",
		map[string]int{"rating": 6}, bettorToken)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusUnprocessableEntity)
}

func TestFollowAndUnfollow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	_, bookieID := env.RegisterAccount("followed_bookie", "securepass123")
	followerToken, _ := env.RegisterAccount("follower", "securepass123")

	resp := env.POST("/users/"+bookieID.String()+"/follow", nil, followerToken)
	resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	list := env.AuthGET("/users/me/following", followerToken)
	var following []struct {
		Username string `json:"username"`
	}
	testutil.DecodeJSON(t, list, &following)
	require.Len(t, following, 1)
	assert.Equal(t, "followed_bookie", following[0].Username)

	del := env.AuthDELETE("/users/"+bookieID.String()+"/follow", followerToken)
	del.Body.Close()
	testutil.AssertStatus(t, del, http.StatusOK)

	list2 := env.AuthGET("/users/me/following", followerToken)
	var after []struct {
		Username string `json:"username"`
	}
	testutil.DecodeJSON(t, list2, &after)
	assert.Empty(t, after)
}

func TestFollow_SelfRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.RegisterAccount("narcissist", "securepass123")

	resp := env.POST("/users/"+accountID.String()+"/follow", nil, token)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestBookieStats_TracksRecord(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, bookieID := env.RegisterAccount("stats_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("stats_bettor", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))

	offerA := env.CreateOffer(bookieToken, marketID, 100)
	env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerA, 100)
	env.SettleWager(bettorToken, wagerID, "bookie")

	resp := env.GET("/users/" + bookieID.String() + "/stats")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var stats struct {
		Username      string  `json:"username"`
		TotalLines    int     `json:"total_lines_created"`
		ActiveLines   int     `json:"active_lines"`
		Wins          int     `json:"wins"`
		Losses        int     `json:"losses"`
		WinRate       float64 `json:"win_rate"`
		SettledWagers int     `json:"settled_wagers"`
		Profit        int64   `json:"profit"`
	}
	testutil.DecodeJSON(t, resp, &stats)
	assert.Equal(t, "stats_bookie", stats.Username)
	assert.Equal(t, 2, stats.TotalLines)
	assert.Equal(t, 1, stats.ActiveLines)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 0, stats.Losses)
	assert.Equal(t, 100.0, stats.WinRate)
	assert.Equal(t, 1, stats.SettledWagers)
	assert.Equal(t, int64(90), stats.Profit)
}

func TestGroups_InviteFlow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	creatorToken, _ := env.RegisterAccount("group_creator", "securepass123")
	env.RegisterAccount("group_invitee", "securepass123")
	outsiderToken, _ := env.RegisterAccount("group_outsider", "securepass123")

	resp := env.POST("/groups", map[string]string{"name": "Degens Anonymous"}, creatorToken)
	testutil.AssertStatus(t, resp, http.StatusCreated)
	var group struct {
		ID          string `json:"id"`
		MemberCount int    `json:"member_count"`
	}
	testutil.DecodeJSON(t, resp, &group)
	assert.Equal(t, 1, group.MemberCount)

	invite := env.POST("/groups/"+group.ID+"/invite",
		map[string]string{"username": "group_invitee"}, creatorToken)
	invite.Body.Close()
	testutil.AssertStatus(t, invite, http.StatusOK)

	// Inviting a current member conflicts.
	again := env.POST("/groups/"+group.ID+"/invite",
		map[string]string{"username": "group_invitee"}, creatorToken)
	again.Body.Close()
	testutil.AssertStatus(t, again, http.StatusConflict)

	// Non-members cannot invite.
	sneaky := env.POST("/groups/"+group.ID+"/invite",
		map[string]string{"username": "group_outsider"}, outsiderToken)
	sneaky.Body.Close()
	testutil.AssertStatus(t, sneaky, http.StatusForbidden)
}

func TestPrivateOffer_VisibleToGroupOnly(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("private_bookie", "securepass123")
	memberToken, _ := env.RegisterAccount("private_member", "securepass123")
	outsiderToken, _ := env.RegisterAccount("private_outsider", "securepass123")
	marketID := env.CreateMarket("game", time.Now().Add(24*time.Hour))

	groupResp := env.POST("/groups", map[string]string{"name": "Inner Circle"}, bookieToken)
	var group struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, groupResp, &group)

	invite := env.POST("/groups/"+group.ID+"/invite",
		map[string]string{"username": "private_member"}, bookieToken)
	invite.Body.Close()

	created := env.POST("/offers", map[string]interface{}{
		"market_id":  marketID,
		"type":       "spread",
		"side":       "home",
		"value":      -3.5,
		"amount":     100,
		"is_private": true,
		"group_id":   group.ID,
	}, bookieToken)
	testutil.AssertStatus(t, created, http.StatusCreated)
	var offer struct {
		ID string `json:"id"`
	}
	testutil.DecodeJSON(t, created, &offer)

	countVisible := func(token string) int {
		var resp *http.Response
		if token == "" {
			resp = env.GET("/offers")
		} else {
			resp = env.AuthGET("/offers", token)
		}
		var offers []struct {
			ID string `json:"id"`
		}
		testutil.DecodeJSON(t, resp, &offers)
		count := 0
		for _, o := range offers {
			if o.ID == offer.ID {
				count++
			}
		}
		return count
	}

	assert.Equal(t, 1, countVisible(memberToken), "group member should see the line")
	assert.Equal(t, 0, countVisible(outsiderToken), "outsider should not see the line")
	assert.Equal(t, 0, countVisible(""), "anonymous feed should not include the line")

	// Outsiders cannot take the private line either.
	take := env.POST("/offers/"+offer.ID+"/take", map[string]int64{"stake": 50}, outsiderToken)
	take.Body.Close()
	testutil.AssertStatus(t, take, http.StatusForbidden)
}

func TestLeaderboard_OrdersByProfit(t *testing.T) {
	env := testutil.NewTestEnv(t)
	bookieToken, _ := env.RegisterAccount("board_bookie", "securepass123")
	bettorToken, _ := env.RegisterAccount("board_bettor", "securepass123")
	env.RegisterAccount("board_idler", "securepass123")
	marketID := env.CreateMarket("future", time.Now().Add(24*time.Hour))

	offerID := env.CreateOffer(bookieToken, marketID, 100)
	wagerID := env.TakeOffer(bettorToken, offerID, 100)
	env.SettleWager(bettorToken, wagerID, "bookie")

	resp := env.GET("/leaderboard")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var board []struct {
		Username string `json:"username"`
		Profit   int64  `json:"profit"`
	}
	testutil.DecodeJSON(t, resp, &board)
	require.NotEmpty(t, board)
	assert.Equal(t, "board_bookie", board[0].Username)
	assert.Equal(t, int64(90), board[0].Profit)
}

func TestSearchUsers_SubstringMatch(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterAccount("sharp_shooter", "securepass123")
	env.RegisterAccount("sharp_money", "securepass123")
	env.RegisterAccount("square_bettor", "securepass123")

	resp := env.GET("/users?q=sharp")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var results []struct {
		Username string `json:"username"`
	}
	testutil.DecodeJSON(t, resp, &results)
	require.Len(t, results, 2)
}
