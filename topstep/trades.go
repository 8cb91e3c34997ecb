package topstep

import (
	"context"
	"fmt"
	"time"
)

const (
	sessionTimezone = "America/Chicago"
	// Regular trading session, Central Time.
	sessionStartHour   = 8
	sessionStartMinute = 30
	sessionEndHour     = 17
	sessionEndMinute   = 0

	// Timestamp format the API expects: "2025-01-20T15:47:39.882Z".
	apiTimeFormat = "2006-01-02T15:04:05.000Z"
)

// Trade is a fill as returned by /api/Trade/search. A null profitAndLoss
// marks a half-turn trade whose position is still open.
type Trade struct {
	ID            int64    `json:"id"`
	AccountID     int64    `json:"accountId"`
	ContractID    string   `json:"contractId"`
	Timestamp     string   `json:"timestamp"`
	ProfitAndLoss *float64 `json:"profitAndLoss"`
	Fees          float64  `json:"fees"`
	Side          int      `json:"side"`
	Size          int      `json:"size"`
	Voided        bool     `json:"voided"`
}

type tradeSearchRequest struct {
	AccountID      int64  `json:"accountId"`
	StartTimestamp string `json:"startTimestamp"`
	EndTimestamp   string `json:"endTimestamp"`
}

type tradeSearchResponse struct {
	Success      bool    `json:"success"`
	ErrorMessage string  `json:"errorMessage"`
	Trades       []Trade `json:"trades"`
}

// SessionWindow returns the regular session bounds (08:30-17:00 Central) for
// the trading day containing the given instant, in UTC.
func SessionWindow(day time.Time) (start, end time.Time, err error) {
	loc, err := time.LoadLocation(sessionTimezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("load session timezone: %w", err)
	}
	local := day.In(loc)
	start = time.Date(local.Year(), local.Month(), local.Day(), sessionStartHour, sessionStartMinute, 0, 0, loc)
	end = time.Date(local.Year(), local.Month(), local.Day(), sessionEndHour, sessionEndMinute, 0, 0, loc)
	return start.UTC(), end.UTC(), nil
}

// DailyTrades fetches the trades of the regular session containing day.
func (c *Client) DailyTrades(ctx context.Context, accountID int64, day time.Time) ([]Trade, error) {
	start, end, err := SessionWindow(day)
	if err != nil {
		return nil, err
	}
	return c.searchTrades(ctx, accountID, start, end)
}

// TradesSince fetches trades over a wide window ending now; useful for
// verification when the session window comes back empty.
func (c *Client) TradesSince(ctx context.Context, accountID int64, hoursBack int) ([]Trade, error) {
	end := time.Now().UTC()
	return c.searchTrades(ctx, accountID, end.Add(-time.Duration(hoursBack)*time.Hour), end)
}

func (c *Client) searchTrades(ctx context.Context, accountID int64, start, end time.Time) ([]Trade, error) {
	req := tradeSearchRequest{
		AccountID:      accountID,
		StartTimestamp: start.UTC().Format(apiTimeFormat),
		EndTimestamp:   end.UTC().Format(apiTimeFormat),
	}
	c.log.Debug().Int64("account", accountID).
		Str("start", req.StartTimestamp).Str("end", req.EndTimestamp).
		Msg("fetching trades")

	var resp tradeSearchResponse
	if err := c.post(ctx, "/api/Trade/search", req, &resp); err != nil {
		return nil, fmt.Errorf("trade search: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("trade search: %w", &APIError{Message: resp.ErrorMessage})
	}
	return resp.Trades, nil
}
