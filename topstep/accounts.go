package topstep

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Account is a trading account as returned by /api/Account/search. Equity,
// Margin and FreeMargin are not present in every response.
type Account struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Balance    float64  `json:"balance"`
	CanTrade   bool     `json:"canTrade"`
	IsVisible  bool     `json:"isVisible"`
	Simulated  bool     `json:"simulated"`
	Status     string   `json:"status,omitempty"`
	Equity     *float64 `json:"equity,omitempty"`
	Margin     *float64 `json:"margin,omitempty"`
	FreeMargin *float64 `json:"freeMargin,omitempty"`
}

// Key returns the account's identifier as the opaque string the anchor
// store is keyed by.
func (a Account) Key() string {
	return strconv.FormatInt(a.ID, 10)
}

// IsActive prefers the status field, falling back to canTrade when the
// response omits it.
func (a Account) IsActive() bool {
	if a.Status != "" {
		return strings.EqualFold(a.Status, "active")
	}
	return a.CanTrade
}

// DisplayEquity is the account's equity, or its balance when the response
// carries no equity.
func (a Account) DisplayEquity() float64 {
	if a.Equity != nil {
		return *a.Equity
	}
	return a.Balance
}

// UnrealizedPnL is equity minus balance, or 0 when equity is unknown.
func (a Account) UnrealizedPnL() float64 {
	if a.Equity == nil {
		return 0
	}
	return *a.Equity - a.Balance
}

type accountSearchRequest struct {
	OnlyActiveAccounts bool `json:"onlyActiveAccounts"`
}

type accountSearchResponse struct {
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"errorMessage"`
	Accounts     []Account `json:"accounts"`
}

// SearchAccounts lists accounts, optionally restricted to active ones.
func (c *Client) SearchAccounts(ctx context.Context, onlyActive bool) ([]Account, error) {
	var resp accountSearchResponse
	if err := c.post(ctx, "/api/Account/search", accountSearchRequest{OnlyActiveAccounts: onlyActive}, &resp); err != nil {
		return nil, fmt.Errorf("account search: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("account search: %w", &APIError{Message: resp.ErrorMessage})
	}
	c.log.Debug().Int("accounts", len(resp.Accounts)).Msg("account search successful")
	return resp.Accounts, nil
}
