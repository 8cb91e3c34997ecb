package pnl

// AccountPnL bundles one account's figures for the portfolio roll-up.
type AccountPnL struct {
	Equity     float64
	Balance    float64
	Realized   Realized
	Unrealized Unrealized
	Total      Total
}

// Portfolio is the cross-account summary.
type Portfolio struct {
	TotalEquity          float64
	TotalBalance         float64
	TotalRealizedPnL     float64
	TotalUnrealizedPnL   float64
	TotalPnL             float64
	TotalFees            float64
	TotalCompletedTrades int
	TotalOpenPositions   int
	AccountCount         int
	Outcome              Outcome
}

// Summarize sums the per-account figures.
func Summarize(accounts []AccountPnL) Portfolio {
	var p Portfolio
	for _, a := range accounts {
		p.TotalEquity += a.Equity
		p.TotalBalance += a.Balance
		p.TotalRealizedPnL += a.Realized.RealizedPnL
		p.TotalUnrealizedPnL += a.Unrealized.UnrealizedPnL
		p.TotalFees += a.Realized.Fees
		p.TotalCompletedTrades += a.Realized.CompletedTrades
		p.TotalOpenPositions += a.Unrealized.OpenPositions
		p.AccountCount++
	}
	p.TotalPnL = p.TotalRealizedPnL + p.TotalUnrealizedPnL
	p.Outcome = outcomeOf(p.TotalPnL)
	return p
}

// Warning flags heavy portfolio-level losses, scaled to account count.
func (p Portfolio) Warning() Level {
	if p.AccountCount == 0 {
		return LevelNormal
	}
	perAccount := p.TotalPnL / float64(p.AccountCount)
	switch {
	case perAccount < -1000:
		return LevelCritical
	case perAccount < -500:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// RiskAssessment names the factors currently weighing on the portfolio.
type RiskAssessment struct {
	Level   Level
	Factors []string
}

// AssessRisk inspects the summary for loss concentrations and open exposure.
func AssessRisk(p Portfolio) RiskAssessment {
	a := RiskAssessment{Level: p.Warning()}

	if p.TotalRealizedPnL < -500 {
		a.Factors = append(a.Factors, "realized_losses")
	}
	if p.TotalUnrealizedPnL < -500 {
		a.Factors = append(a.Factors, "unrealized_losses")
	}
	if p.TotalOpenPositions > 0 && p.TotalUnrealizedPnL < 0 {
		a.Factors = append(a.Factors, "open_exposure")
	}
	if len(a.Factors) == 0 {
		a.Factors = append(a.Factors, "none")
	}
	return a
}
