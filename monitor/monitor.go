// Package monitor orchestrates one poll pass over the account set: ensure
// authentication, fetch accounts, bootstrap unseen ones, raise intraday
// highs, drive the daily rollover, evaluate the MLL verdict, compute P&L and
// journal audit events.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/riskwatch/anchor"
	"github.com/rustyeddy/riskwatch/config"
	"github.com/rustyeddy/riskwatch/journal"
	"github.com/rustyeddy/riskwatch/mll"
	"github.com/rustyeddy/riskwatch/pnl"
	"github.com/rustyeddy/riskwatch/rollover"
	"github.com/rustyeddy/riskwatch/topstep"
)

// Fetcher is the slice of the broker client the monitor needs; it exists so
// the service can be tested against a fake.
type Fetcher interface {
	EnsureAuthenticated(ctx context.Context) error
	SearchAccounts(ctx context.Context, onlyActive bool) ([]topstep.Account, error)
	DailyTrades(ctx context.Context, accountID int64, day time.Time) ([]topstep.Trade, error)
	OpenPositions(ctx context.Context, accountID int64) ([]topstep.Position, error)
}

// AccountReport is everything the monitor derives for one account in a pass.
type AccountReport struct {
	Account    topstep.Account
	Anchors    *anchor.Record
	Verdict    mll.Verdict
	Realized   pnl.Realized
	Unrealized pnl.Unrealized
	Total      pnl.Total
}

// Report is the outcome of one poll pass.
type Report struct {
	Time       time.Time
	Accounts   []AccountReport
	Portfolio  pnl.Portfolio
	Risk       pnl.RiskAssessment
	RolledOver []string
}

// Monitor wires the adapters, the anchor store, the rollover engine and the
// evaluator together.
type Monitor struct {
	fetcher  Fetcher
	store    *anchor.Store
	engine   *rollover.Engine
	table    mll.Table
	accounts *config.Accounts
	journal  journal.Journal
	log      zerolog.Logger
}

func New(fetcher Fetcher, store *anchor.Store, engine *rollover.Engine, table mll.Table,
	accounts *config.Accounts, jnl journal.Journal, log zerolog.Logger) *Monitor {
	return &Monitor{
		fetcher:  fetcher,
		store:    store,
		engine:   engine,
		table:    table,
		accounts: accounts,
		journal:  jnl,
		log:      log,
	}
}

// Poll runs one full pass at the given instant and returns the report.
func (m *Monitor) Poll(ctx context.Context, now time.Time) (*Report, error) {
	if err := m.fetcher.EnsureAuthenticated(ctx); err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	accounts, err := m.fetcher.SearchAccounts(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}

	active := accounts[:0]
	for _, acct := range accounts {
		if acct.IsActive() {
			active = append(active, acct)
		}
	}

	if err := m.updateAnchors(active); err != nil {
		return nil, err
	}

	rolled, err := m.rolloverPass(active, now)
	if err != nil {
		return nil, err
	}

	report := &Report{Time: now, RolledOver: rolled}
	var summaries []pnl.AccountPnL
	for _, acct := range active {
		ar, err := m.evaluateAccount(ctx, acct, now)
		if err != nil {
			// One account failing P&L retrieval must not blind the rest.
			m.log.Error().Err(err).Str("account", acct.Key()).Msg("account evaluation failed")
			continue
		}
		report.Accounts = append(report.Accounts, ar)
		summaries = append(summaries, pnl.AccountPnL{
			Equity:     acct.DisplayEquity(),
			Balance:    acct.Balance,
			Realized:   ar.Realized,
			Unrealized: ar.Unrealized,
			Total:      ar.Total,
		})
	}

	report.Portfolio = pnl.Summarize(summaries)
	report.Risk = pnl.AssessRisk(report.Portfolio)
	return report, nil
}

// updateAnchors bootstraps unseen accounts and raises intraday highs with
// the live equity.
func (m *Monitor) updateAnchors(accounts []topstep.Account) error {
	for _, acct := range accounts {
		key := acct.Key()
		rec := m.store.GetOrCreate(key)
		if !rec.StartingBalanceSet() {
			start := m.accounts.StartingBalance(acct.Name)
			if err := m.engine.Bootstrap(key, acct.Balance, start); err != nil {
				return err
			}
		}
		if err := m.store.RaiseIntradayHigh(key, acct.DisplayEquity()); err != nil {
			return fmt.Errorf("raise intraday high for %s: %w", key, err)
		}
	}
	return nil
}

// rolloverPass drives the time-gated fold and journals each fold.
func (m *Monitor) rolloverPass(accounts []topstep.Account, now time.Time) ([]string, error) {
	equities := make([]rollover.AccountEquity, 0, len(accounts))
	// The fold consumes the intraday high; capture each account's fold
	// candidate up front so the journal can record what was folded.
	candidates := make(map[string]float64, len(accounts))
	for _, acct := range accounts {
		key := acct.Key()
		equity := acct.DisplayEquity()
		equities = append(equities, rollover.AccountEquity{AccountID: key, Equity: equity})

		candidates[key] = equity
		if rec := m.store.GetOrCreate(key); rec.IntradayHighSet() {
			candidates[key] = rec.IntradayHighValue()
		}
	}

	rolled, err := m.engine.Poll(equities, now)
	if err != nil {
		return rolled, fmt.Errorf("rollover poll: %w", err)
	}

	for _, id := range rolled {
		rec := m.store.GetOrCreate(id)
		event := journal.RolloverEvent{
			EventID:       journal.NewEventID(),
			AccountID:     id,
			TradingDate:   rec.LastRolloverDate,
			FoldedHigh:    candidates[id],
			EODHighAnchor: rec.EODHighAnchor,
			Time:          now,
		}
		if err := m.journal.RecordRollover(event); err != nil {
			m.log.Error().Err(err).Str("account", id).Msg("journal rollover failed")
		}
	}
	return rolled, nil
}

// evaluateAccount computes the verdict and the P&L figures for one account,
// handling the breach-lockout transition.
func (m *Monitor) evaluateAccount(ctx context.Context, acct topstep.Account, now time.Time) (AccountReport, error) {
	key := acct.Key()
	rec := m.store.GetOrCreate(key)

	verdict := m.table.Evaluate(mll.Inputs{
		AccountID:       key,
		StartingBalance: rec.StartingBalanceValue(),
		EODHighAnchor:   rec.EODHighAnchor,
		CurrentEquity:   acct.DisplayEquity(),
	})

	if verdict.Status == mll.StatusBlown && !rec.LockedOut {
		if err := m.store.SetLockedOut(key, true); err != nil {
			return AccountReport{}, fmt.Errorf("lock out %s: %w", key, err)
		}
		breach := journal.BreachEvent{
			EventID:   journal.NewEventID(),
			AccountID: key,
			Floor:     verdict.Floor,
			Equity:    verdict.CurrentEquity,
			Used:      verdict.Used,
			Remaining: verdict.Remaining,
			Reason:    verdict.Reason,
			Time:      now,
		}
		if err := m.journal.RecordBreach(breach); err != nil {
			m.log.Error().Err(err).Str("account", key).Msg("journal breach failed")
		}
		m.log.Warn().Str("account", key).
			Float64("floor", verdict.Floor).
			Float64("equity", verdict.CurrentEquity).
			Msg("account blew through MLL floor, locked out")
		rec = m.store.GetOrCreate(key)
	}

	trades, err := m.fetcher.DailyTrades(ctx, acct.ID, now)
	if err != nil {
		return AccountReport{}, fmt.Errorf("fetch trades: %w", err)
	}
	positions, err := m.fetcher.OpenPositions(ctx, acct.ID)
	if err != nil {
		return AccountReport{}, fmt.Errorf("fetch positions: %w", err)
	}

	realized := pnl.ComputeRealized(acct.ID, acct.Name, trades)
	unrealized := pnl.ComputeUnrealized(acct, positions)

	return AccountReport{
		Account:    acct,
		Anchors:    rec,
		Verdict:    verdict,
		Realized:   realized,
		Unrealized: unrealized,
		Total:      pnl.ComputeTotal(realized, unrealized),
	}, nil
}

// AccountStatus is one row of the rollover status report.
type AccountStatus struct {
	AccountID        string
	LastRolloverDate string
	IntradayHighSet  bool
	LockedOut        bool
}

// RolloverStatus lists the accounts still due for today's rollover.
type RolloverStatus struct {
	InWindow    bool
	TradingDate string
	Due         []AccountStatus
}

// Status reports which known accounts have not rolled on today's trading
// date.
func (m *Monitor) Status(now time.Time) RolloverStatus {
	today := m.engine.TradingDate(now)
	st := RolloverStatus{
		InWindow:    m.engine.InWindow(now),
		TradingDate: today,
	}
	for _, rec := range m.store.Snapshots() {
		if rec.LastRolloverDate == today {
			continue
		}
		st.Due = append(st.Due, AccountStatus{
			AccountID:        rec.AccountID,
			LastRolloverDate: rec.LastRolloverDate,
			IntradayHighSet:  rec.IntradayHighSet(),
			LockedOut:        rec.LockedOut,
		})
	}
	return st
}
