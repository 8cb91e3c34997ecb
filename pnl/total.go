package pnl

// Total combines realized and unrealized P&L for one account.
type Total struct {
	AccountID     int64
	AccountName   string
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
	Fees          float64
	Outcome       Outcome
}

// ComputeTotal combines the day's realized result with the unrealized one.
func ComputeTotal(r Realized, u Unrealized) Total {
	t := Total{
		AccountID:     r.AccountID,
		AccountName:   r.AccountName,
		RealizedPnL:   r.RealizedPnL,
		UnrealizedPnL: u.UnrealizedPnL,
		TotalPnL:      r.RealizedPnL + u.UnrealizedPnL,
		Fees:          r.Fees,
	}
	t.Outcome = outcomeOf(t.TotalPnL)
	return t
}
