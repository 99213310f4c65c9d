//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bookieverse/platform/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_StartsWithOpeningBalance(t *testing.T) {
	env := testutil.NewTestEnv(t)

	token, accountID := env.RegisterAccount("fresh_bookie", "securepass123")
	require.NotEmpty(t, token)

	testutil.AssertBalances(t, env, accountID, 1000, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.account.created"))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterAccount("taken_name", "securepass123")

	resp := env.POST("/auth/register", map[string]string{
		"username": "taken_name",
		"password": "otherpass123",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusConflict)
}

func TestRegister_ShortPassword(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.POST("/auth/register", map[string]string{
		"username": "shortpw",
		"password": "short",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestLogin_ValidCredentials(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterAccount("login_user", "securepass123")

	token := env.Login("login_user", "securepass123")

	resp := env.AuthGET("/users/me", token)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var me struct {
		Username string `json:"username"`
		Balance  int64  `json:"balance"`
	}
	testutil.DecodeJSON(t, resp, &me)
	assert.Equal(t, "login_user", me.Username)
	assert.Equal(t, int64(1000), me.Balance)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterAccount("wrong_pw_user", "securepass123")

	resp := env.POST("/auth/login", map[string]string{
		"username": "wrong_pw_user",
		"password": "not-the-password",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusUnauthorized)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.RegisterAccount("lockout_user", "securepass123")

	for i := 0; i < 5; i++ {
		resp := env.POST("/auth/login", map[string]string{
			"username": "lockout_user",
			"password": "bad-password",
		}, "")
		resp.Body.Close()
	}

	// Even the correct password is refused while locked.
	resp := env.POST("/auth/login", map[string]string{
		"username": "lockout_user",
		"password": "securepass123",
	}, "")
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusTooManyRequests)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp := env.GET("/users/me")
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusUnauthorized)

	resp2 := env.AuthGET("/users/me", "not-a-real-token")
	defer resp2.Body.Close()
	testutil.AssertStatus(t, resp2, http.StatusUnauthorized)
}
