package pnl

import "github.com/rustyeddy/riskwatch/topstep"

// Unrealized is the open-position P&L picture for an account. The figure is
// equity minus balance as reported by the broker; no mark-to-market pricing
// happens here. Position counts come from the open-position search.
type Unrealized struct {
	AccountID      int64
	AccountName    string
	UnrealizedPnL  float64
	OpenPositions  int
	TotalSize      int
	LongPositions  int
	ShortPositions int
	Outcome        Outcome
}

// ComputeUnrealized derives the unrealized P&L from the account snapshot and
// tallies its open positions.
func ComputeUnrealized(acct topstep.Account, positions []topstep.Position) Unrealized {
	u := Unrealized{
		AccountID:     acct.ID,
		AccountName:   acct.Name,
		UnrealizedPnL: acct.UnrealizedPnL(),
	}

	for _, pos := range positions {
		u.OpenPositions++
		if pos.Size < 0 {
			u.TotalSize += -pos.Size
		} else {
			u.TotalSize += pos.Size
		}
		switch pos.Type {
		case topstep.PositionLong:
			u.LongPositions++
		case topstep.PositionShort:
			u.ShortPositions++
		}
	}

	u.Outcome = outcomeOf(u.UnrealizedPnL)
	return u
}

// Warning flags heavy unrealized losses.
func (u Unrealized) Warning() Level {
	switch {
	case u.UnrealizedPnL < -800:
		return LevelCritical
	case u.UnrealizedPnL < -300:
		return LevelWarning
	default:
		return LevelNormal
	}
}
