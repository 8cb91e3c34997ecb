// Package pnl computes daily realized, unrealized and total P&L per account
// and rolls them up into a portfolio summary. All functions are pure; the
// data comes from the topstep adapters.
package pnl

import "github.com/rustyeddy/riskwatch/topstep"

// Outcome classifies a P&L figure. A one-cent band around zero counts as
// breakeven to absorb floating rounding.
type Outcome int

const (
	Breakeven Outcome = iota
	Profit
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Profit:
		return "PROFIT"
	case Loss:
		return "LOSS"
	default:
		return "BREAKEVEN"
	}
}

func outcomeOf(v float64) Outcome {
	switch {
	case v > 0.01:
		return Profit
	case v < -0.01:
		return Loss
	default:
		return Breakeven
	}
}

// Level is the advisory warning tier for P&L figures.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "WARNING"
	case LevelCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// Realized is the day's realized P&L from completed trades.
type Realized struct {
	AccountID       int64
	AccountName     string
	RealizedPnL     float64
	NetPnL          float64 // after fees
	Fees            float64
	CompletedTrades int
	OpenTrades      int
	TotalTrades     int
	Outcome         Outcome
}

// ComputeRealized sums profitAndLoss over non-voided completed trades. A
// null profitAndLoss marks a half-turn trade (position still open) and is
// counted but not summed. Fees accrue for every non-voided trade.
func ComputeRealized(accountID int64, accountName string, trades []topstep.Trade) Realized {
	r := Realized{
		AccountID:   accountID,
		AccountName: accountName,
		TotalTrades: len(trades),
	}

	for _, trade := range trades {
		if trade.Voided {
			continue
		}
		r.Fees += trade.Fees
		if trade.ProfitAndLoss != nil {
			r.RealizedPnL += *trade.ProfitAndLoss
			r.CompletedTrades++
		} else {
			r.OpenTrades++
		}
	}

	r.NetPnL = r.RealizedPnL - r.Fees
	r.Outcome = outcomeOf(r.RealizedPnL)
	return r
}

// Warning flags heavy realized losses for the day.
func (r Realized) Warning() Level {
	switch {
	case r.RealizedPnL < -1000:
		return LevelCritical
	case r.RealizedPnL < -500:
		return LevelWarning
	default:
		return LevelNormal
	}
}
