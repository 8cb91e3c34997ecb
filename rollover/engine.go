// Package rollover drives the once-daily anchor fold. Futures trading days
// cut over at 17:00 America/Chicago; the engine treats the cutover as a
// window from that instant to the end of the calendar day, keyed by the
// last-rollover date, so a poll landing late in the evening still folds and
// repeated polls fold exactly once.
package rollover

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/riskwatch/anchor"
)

const (
	DefaultCutoverHour   = 17
	DefaultCutoverMinute = 0
	DefaultTimezone      = "America/Chicago"
	DefaultMinInterval   = time.Minute
)

// AccountEquity is an account's live equity at poll time, used as the fold
// fallback when no intraday high was observed.
type AccountEquity struct {
	AccountID string
	Equity    float64
}

// Engine decides when to fold anchors and drives the fold across accounts.
type Engine struct {
	store *anchor.Store
	loc   *time.Location
	hour  int
	min   int
	log   zerolog.Logger

	mu          sync.Mutex
	minInterval time.Duration
	lastCheck   time.Time
}

// New builds an Engine with the given cutover. An empty timezone or a zero
// minInterval fall back to the defaults.
func New(store *anchor.Store, timezone string, hour, minute int, minInterval time.Duration, log zerolog.Logger) (*Engine, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load cutover timezone %q: %w", timezone, err)
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Engine{
		store:       store,
		loc:         loc,
		hour:        hour,
		min:         minute,
		minInterval: minInterval,
		log:         log,
	}, nil
}

// TradingDate returns the trading-day key for an instant: its calendar date
// in the cutover timezone, formatted YYYY-MM-DD.
func (e *Engine) TradingDate(now time.Time) string {
	return now.In(e.loc).Format("2006-01-02")
}

// InWindow reports whether now falls inside the cutover window: at or after
// the cutover time, through the end of that calendar day. An exact-minute
// check would silently skip the cutover whenever poll timing jittered past
// it; the window never can.
func (e *Engine) InWindow(now time.Time) bool {
	local := now.In(e.loc)
	cutover := time.Date(local.Year(), local.Month(), local.Day(), e.hour, e.min, 0, 0, e.loc)
	return !local.Before(cutover)
}

// Poll checks the clock and, if the cutover window is open, folds every
// account that has not yet rolled on today's trading date. Returns the IDs
// folded, in input order. Scans are rate-limited to minInterval, but the
// limit is bypassed while the window is open so a due rollover is never
// suppressed past the cutover.
func (e *Engine) Poll(accounts []AccountEquity, now time.Time) ([]string, error) {
	inWindow := e.InWindow(now)
	if !e.shouldCheck(now, inWindow) {
		return nil, nil
	}
	if !inWindow {
		return nil, nil
	}

	today := e.TradingDate(now)
	var rolled []string
	for _, acct := range accounts {
		if !e.store.IsRolloverDue(acct.AccountID, today) {
			continue
		}
		if err := e.store.Fold(acct.AccountID, today, acct.Equity); err != nil {
			return rolled, fmt.Errorf("fold account %s: %w", acct.AccountID, err)
		}
		rolled = append(rolled, acct.AccountID)
	}

	if len(rolled) > 0 {
		e.log.Info().Int("accounts", len(rolled)).Strs("account_ids", rolled).
			Str("trading_date", today).Msg("daily rollover completed")
	}
	return rolled, nil
}

// shouldCheck rate-limits scans outside the window. Inside the window every
// poll gets through; idempotency then comes from the rollover date.
func (e *Engine) shouldCheck(now time.Time, inWindow bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !inWindow && !e.lastCheck.IsZero() && now.Sub(e.lastCheck) < e.minInterval {
		return false
	}
	e.lastCheck = now
	return true
}

// Bootstrap initializes anchors the first time an account is observed: the
// configured starting balance (set-once, so re-running is harmless) and an
// EOD high anchor at the current balance, giving a brand-new account a sane
// floor before any trading activity. The intraday high is left absent.
func (e *Engine) Bootstrap(accountID string, currentBalance, configuredStart float64) error {
	if err := e.store.SetStartingBalance(accountID, configuredStart); err != nil {
		return fmt.Errorf("bootstrap %s: %w", accountID, err)
	}
	if err := e.store.RaiseEODHigh(accountID, currentBalance); err != nil {
		return fmt.Errorf("bootstrap %s: %w", accountID, err)
	}
	e.log.Info().Str("account", accountID).
		Float64("starting_balance", configuredStart).
		Float64("initial_balance", currentBalance).
		Msg("initialized account anchors")
	return nil
}
