//go:build integration

package integration

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bookieverse/platform/test/integration/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShopPackages_ListsCatalog(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, _ := env.RegisterAccount("shopper", "securepass123")

	resp := env.AuthGET("/shop/packages", token)
	defer resp.Body.Close()
	testutil.AssertStatus(t, resp, http.StatusOK)

	var packages []struct {
		Key        string `json:"key"`
		PriceCents int64  `json:"price_cents"`
		Credits    int64  `json:"credits"`
	}
	testutil.DecodeJSON(t, resp, &packages)
	require.Len(t, packages, 5)
	assert.Equal(t, "small", packages[0].Key)
	assert.Equal(t, int64(300), packages[0].Credits)
}

func TestStripeWebhook_MissingSignatureRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)

	resp, err := http.Post(env.Server.URL+"/webhooks/stripe", "application/json",
		bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	require.NoError(t, err)
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestStripeWebhook_BadSignatureRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)

	resp := postWebhook(t, env, payload,
		fmt.Sprintf("t=%d,v1=%s", time.Now().Unix(), "deadbeef"))
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusBadRequest)
}

func TestStripeWebhook_CreditsOnceOnRetry(t *testing.T) {
	env := testutil.NewTestEnv(t)
	token, accountID := env.RegisterAccount("credit_buyer", "securepass123")

	sessionID := "cs_test_" + uuid.NewString()
	payload := checkoutCompletedPayload(t, sessionID, accountID, "medium", 500, 499)

	for i := 0; i < 2; i++ {
		resp := postWebhook(t, env, payload, signWebhook(payload))
		testutil.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	// 1000 opening plus one 500-credit package, not two.
	testutil.AssertBalances(t, env, accountID, 1500, 0)
	assert.Equal(t, 1, testutil.CountOutboxEvents(t, env, "bv.shop.credit.purchased"))

	resp := env.AuthGET("/shop/purchases", token)
	defer resp.Body.Close()
	var purchases []struct {
		Package   string `json:"package"`
		Credits   int64  `json:"credits"`
		SessionID string `json:"session_id"`
	}
	testutil.DecodeJSON(t, resp, &purchases)
	require.Len(t, purchases, 1)
	assert.Equal(t, "medium", purchases[0].Package)
	assert.Equal(t, int64(500), purchases[0].Credits)
	assert.Equal(t, sessionID, purchases[0].SessionID)
}

func TestStripeWebhook_IgnoresOtherEventTypes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	payload := []byte(`{"id":"evt_other","type":"payment_intent.created","data":{"object":{}}}`)

	resp := postWebhook(t, env, payload, signWebhook(payload))
	defer resp.Body.Close()

	testutil.AssertStatus(t, resp, http.StatusOK)
}

// checkoutCompletedPayload builds a checkout.session.completed event body in
// the shape Stripe delivers.
func checkoutCompletedPayload(t *testing.T, sessionID string, accountID uuid.UUID, pkg string, credits, amountCents int64) []byte {
	t.Helper()
	event := map[string]interface{}{
		"id":   "evt_" + uuid.NewString(),
		"type": "checkout.session.completed",
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":                  sessionID,
				"payment_intent":      "pi_" + uuid.NewString(),
				"amount_total":        amountCents,
				"currency":            "usd",
				"status":              "complete",
				"client_reference_id": accountID.String(),
				"metadata": map[string]string{
					"package_key": pkg,
					"credits":     fmt.Sprintf("%d", credits),
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

// signWebhook produces a valid Stripe-Signature header for the payload using
// the test webhook secret.
func signWebhook(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testutil.TestStripeWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, env *testutil.TestEnv, payload []byte, sigHeader string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("POST", env.Server.URL+"/webhooks/stripe", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", sigHeader)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}
