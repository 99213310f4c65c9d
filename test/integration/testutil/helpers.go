//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RegisterAccount creates a new account and returns the auth token and
// account ID. New accounts start with the fixed opening balance.
func (env *TestEnv) RegisterAccount(username, password string) (token string, accountID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/auth/register", map[string]string{
		"username": username,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("RegisterAccount: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Token     string    `json:"token"`
		AccountID uuid.UUID `json:"account_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("RegisterAccount: decode: %v", err)
	}
	return result.Token, result.AccountID
}

// Login authenticates an existing account and returns the auth token.
func (env *TestEnv) Login(username, password string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("Login: expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("Login: decode: %v", err)
	}
	return result.Token
}

// CreateMarket inserts a market row directly. commence in the future keeps
// the market open for new lines.
func (env *TestEnv) CreateMarket(kind string, commence time.Time) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := uuid.New()
	_, err := env.Pool.Exec(ctx, `
		INSERT INTO markets (id, kind, sport, home, away, name, commence_time, status)
		VALUES ($1, $2, 'basketball_nba', 'Home Team', 'Away Team', 'Test Future', $3, 'upcoming')`,
		id, kind, commence)
	if err != nil {
		env.t.Fatalf("CreateMarket: %v", err)
	}
	return id
}

// CreateOffer posts a line via the API and returns the offer ID.
func (env *TestEnv) CreateOffer(token string, marketID uuid.UUID, amount int64) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/offers", map[string]interface{}{
		"market_id": marketID,
		"type":      "spread",
		"side":      "home",
		"value":     -3.5,
		"amount":    amount,
	}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateOffer: expected 201, got %d", resp.StatusCode)
	}

	var offer struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
		env.t.Fatalf("CreateOffer: decode: %v", err)
	}
	return offer.ID
}

// TakeOffer matches a line via the API and returns the wager ID.
func (env *TestEnv) TakeOffer(token string, offerID uuid.UUID, stake int64) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/offers/"+offerID.String()+"/take", map[string]int64{"stake": stake}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("TakeOffer: expected 201, got %d", resp.StatusCode)
	}

	var wager struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wager); err != nil {
		env.t.Fatalf("TakeOffer: decode: %v", err)
	}
	return wager.ID
}

// SettleWager settles a wager via the API asserting the given winner.
func (env *TestEnv) SettleWager(token string, wagerID uuid.UUID, winner string) {
	env.t.Helper()
	resp := env.POST("/wagers/"+wagerID.String()+"/settle", map[string]string{"winner": winner}, token)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("SettleWager: expected 200, got %d", resp.StatusCode)
	}
}

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with optional auth token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// AuthGET performs an authenticated GET request.
func (env *TestEnv) AuthGET(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("GET", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("AuthGET %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("AuthGET %s: %v", path, err)
	}
	return resp
}

// AuthPATCH performs an authenticated PATCH request.
func (env *TestEnv) AuthPATCH(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("PATCH %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("PATCH", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("PATCH %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("PATCH %s: %v", path, err)
	}
	return resp
}

// AuthDELETE performs an authenticated DELETE request.
func (env *TestEnv) AuthDELETE(path, token string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("DELETE", env.Server.URL+path, nil)
	if err != nil {
		env.t.Fatalf("DELETE %s: new request: %v", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("DELETE %s: %v", path, err)
	}
	return resp
}
