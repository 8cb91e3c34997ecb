package topstep

import (
	"context"
	"fmt"
)

// Position type codes on the wire.
const (
	PositionLong  = 0
	PositionShort = 1
)

// Position is an open position from /api/Position/searchOpen.
type Position struct {
	ID                int64   `json:"id"`
	AccountID         int64   `json:"accountId"`
	ContractID        string  `json:"contractId"`
	CreationTimestamp string  `json:"creationTimestamp"`
	Type              int     `json:"type"`
	Size              int     `json:"size"`
	AveragePrice      float64 `json:"averagePrice"`
}

type positionSearchRequest struct {
	AccountID int64 `json:"accountId"`
}

type positionSearchResponse struct {
	Success      bool       `json:"success"`
	ErrorMessage string     `json:"errorMessage"`
	Positions    []Position `json:"positions"`
}

// OpenPositions lists the account's open positions.
func (c *Client) OpenPositions(ctx context.Context, accountID int64) ([]Position, error) {
	var resp positionSearchResponse
	if err := c.post(ctx, "/api/Position/searchOpen", positionSearchRequest{AccountID: accountID}, &resp); err != nil {
		return nil, fmt.Errorf("position search: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("position search: %w", &APIError{Message: resp.ErrorMessage})
	}
	c.log.Debug().Int64("account", accountID).Int("positions", len(resp.Positions)).
		Msg("position search successful")
	return resp.Positions, nil
}
