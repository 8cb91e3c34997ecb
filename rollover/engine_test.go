package rollover

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskwatch/anchor"
)

func newTestEngine(t *testing.T) (*Engine, *anchor.Store) {
	t.Helper()
	store, err := anchor.Open(filepath.Join(t.TempDir(), "anchors.json"), zerolog.Nop())
	require.NoError(t, err)
	eng, err := New(store, "America/Chicago", 17, 0, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	return eng, store
}

// chicago returns a UTC instant whose America/Chicago local time matches the
// given clock values. CDT (UTC-5) is in effect for the August dates used.
func chicago(t *testing.T, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return time.Date(2026, time.August, day, hour, min, 0, 0, loc)
}

func TestInWindow(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t)

	assert.False(t, eng.InWindow(chicago(t, 30, 16, 59)))
	assert.True(t, eng.InWindow(chicago(t, 30, 17, 0)))
	assert.True(t, eng.InWindow(chicago(t, 30, 17, 3)))
	assert.True(t, eng.InWindow(chicago(t, 30, 23, 59)))
	assert.False(t, eng.InWindow(chicago(t, 31, 0, 0)))
	assert.False(t, eng.InWindow(chicago(t, 31, 8, 30)))
}

func TestTradingDate(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t)

	assert.Equal(t, "2026-08-30", eng.TradingDate(chicago(t, 30, 17, 0)))
	// 01:30 UTC on the 31st is still the evening of the 30th in Chicago.
	assert.Equal(t, "2026-08-30", eng.TradingDate(time.Date(2026, time.August, 31, 1, 30, 0, 0, time.UTC)))
}

func TestPoll_BeforeCutoverDoesNothing(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	rolled, err := eng.Poll([]AccountEquity{{"a", 50000}}, chicago(t, 30, 12, 0))
	require.NoError(t, err)
	assert.Empty(t, rolled)
	assert.True(t, store.IsRolloverDue("a", "2026-08-30"))
}

func TestPoll_FoldsOnceInsideWindow(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	require.NoError(t, store.RaiseIntradayHigh("a", 51200))

	// Poll lands 3 minutes past the cutover; the window catches it anyway.
	rolled, err := eng.Poll([]AccountEquity{{"a", 50900}}, chicago(t, 30, 17, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rolled)

	rec := store.GetOrCreate("a")
	assert.InDelta(t, 51200, rec.EODHighAnchor, 1e-9)
	assert.False(t, rec.IntradayHighSet())
	assert.Equal(t, "2026-08-30", rec.LastRolloverDate)

	// Later the same evening: still in window, nothing due.
	rolled, err = eng.Poll([]AccountEquity{{"a", 50900}}, chicago(t, 30, 18, 30))
	require.NoError(t, err)
	assert.Empty(t, rolled)

	// Next day's cutover rolls again.
	rolled, err = eng.Poll([]AccountEquity{{"a", 50100}}, chicago(t, 31, 17, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rolled)
	assert.Equal(t, "2026-08-31", store.GetOrCreate("a").LastRolloverDate)
}

func TestPoll_MultipleAccounts(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	require.NoError(t, store.Fold("b", "2026-08-30", 100000))

	rolled, err := eng.Poll([]AccountEquity{{"a", 50000}, {"b", 100500}, {"c", 150000}}, chicago(t, 30, 17, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, rolled)
}

func TestPoll_RateLimitOutsideWindowOnly(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	// A scan at 16:59:50 arms the one-minute limiter.
	_, err := eng.Poll([]AccountEquity{{"a", 50000}}, chicago(t, 30, 16, 59).Add(50*time.Second))
	require.NoError(t, err)

	// 20 seconds later the window is open; the interval gate must not
	// suppress the due fold.
	rolled, err := eng.Poll([]AccountEquity{{"a", 50000}}, chicago(t, 30, 17, 0).Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, rolled)
	assert.False(t, store.IsRolloverDue("a", "2026-08-30"))
}

func TestBootstrap(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	require.NoError(t, eng.Bootstrap("a", 50325.50, 50000))

	rec := store.GetOrCreate("a")
	assert.InDelta(t, 50000, rec.StartingBalanceValue(), 1e-9)
	assert.InDelta(t, 50325.50, rec.EODHighAnchor, 1e-9)
	assert.False(t, rec.IntradayHighSet())
}

func TestBootstrap_DoesNotClobberExistingState(t *testing.T) {
	t.Parallel()
	eng, store := newTestEngine(t)

	require.NoError(t, store.SetStartingBalance("a", 50000))
	require.NoError(t, store.RaiseEODHigh("a", 52000))

	// Re-observing the account must not lower the anchor or reset the
	// starting balance.
	require.NoError(t, eng.Bootstrap("a", 49000, 100000))

	rec := store.GetOrCreate("a")
	assert.InDelta(t, 50000, rec.StartingBalanceValue(), 1e-9)
	assert.InDelta(t, 52000, rec.EODHighAnchor, 1e-9)
}

func TestNew_BadTimezone(t *testing.T) {
	t.Parallel()
	store, err := anchor.Open(filepath.Join(t.TempDir(), "anchors.json"), zerolog.Nop())
	require.NoError(t, err)

	_, err = New(store, "Not/AZone", 17, 0, 0, zerolog.Nop())
	assert.Error(t, err)
}
