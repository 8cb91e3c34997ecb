package topstep

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:     srv.URL,
		Username:    "user",
		APIKey:      "key",
		MaxRetries:  2,
		RequestRate: 1000,
	}, zerolog.Nop())
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, DefaultAuthEndpoint, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok-123"})
	}))

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, "user", gotBody["userName"])
	assert.Equal(t, "key", gotBody["apiKey"])
	assert.Equal(t, "tok-123", c.bearer())
}

func TestLogin_Rejected(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "errorMessage": "bad key"})
	}))

	err := c.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestEnsureAuthenticated_ReusesFreshToken(t *testing.T) {
	t.Parallel()

	logins := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins++
		json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok"})
	}))

	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	assert.Equal(t, 1, logins)
}

func TestEnsureAuthenticated_RefreshInsideMargin(t *testing.T) {
	t.Parallel()

	logins := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins++
		json.NewEncoder(w).Encode(map[string]any{"success": true, "token": "tok"})
	}))

	require.NoError(t, c.Login(context.Background()))
	c.mu.Lock()
	c.tokenExpiry = time.Now().Add(time.Minute) // inside the 5m margin
	c.mu.Unlock()

	require.NoError(t, c.EnsureAuthenticated(context.Background()))
	assert.Equal(t, 2, logins)
}

func TestSearchAccounts(t *testing.T) {
	t.Parallel()

	equity := 50325.5
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/Account/search", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(accountSearchResponse{
			Success: true,
			Accounts: []Account{
				{ID: 101, Name: "EXPRESS-50K", Balance: 50000, Equity: &equity, CanTrade: true, Status: "Active"},
				{ID: 102, Name: "COMBINE-100K", Balance: 100000, CanTrade: false},
			},
		})
	}))
	c.mu.Lock()
	c.token = "tok"
	c.mu.Unlock()

	accounts, err := c.SearchAccounts(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	a := accounts[0]
	assert.Equal(t, "101", a.Key())
	assert.True(t, a.IsActive())
	assert.InDelta(t, 50325.5, a.DisplayEquity(), 1e-9)
	assert.InDelta(t, 325.5, a.UnrealizedPnL(), 1e-9)

	b := accounts[1]
	assert.False(t, b.IsActive())
	assert.InDelta(t, 100000, b.DisplayEquity(), 1e-9)
	assert.Zero(t, b.UnrealizedPnL())
}

func TestDailyTrades_SessionWindow(t *testing.T) {
	t.Parallel()

	var got tradeSearchRequest
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/Trade/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(tradeSearchResponse{Success: true, Trades: []Trade{{ID: 1}}})
	}))

	// 2026-08-28 is a Friday; Chicago is UTC-5 in August.
	day := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	trades, err := c.DailyTrades(context.Background(), 101, day)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	assert.Equal(t, int64(101), got.AccountID)
	assert.Equal(t, "2026-08-28T13:30:00.000Z", got.StartTimestamp)
	assert.Equal(t, "2026-08-28T22:00:00.000Z", got.EndTimestamp)
}

func TestOpenPositions(t *testing.T) {
	t.Parallel()

	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/Position/searchOpen", r.URL.Path)
		json.NewEncoder(w).Encode(positionSearchResponse{
			Success:   true,
			Positions: []Position{{ID: 7, AccountID: 101, Type: PositionLong, Size: 2, AveragePrice: 5830.25}},
		})
	}))

	positions, err := c.OpenPositions(context.Background(), 101)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, PositionLong, positions[0].Type)
}

func TestPost_RetriesTransportErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// Drop the connection to force a transport error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "accounts": []Account{}})
	}))

	_, err := c.SearchAccounts(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPost_NoRetryOnServerResponse(t *testing.T) {
	t.Parallel()

	calls := 0
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))

	_, err := c.SearchAccounts(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
