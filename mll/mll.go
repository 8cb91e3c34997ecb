// Package mll evaluates the Maximum Loss Limit: the drawdown from the
// end-of-day high-water anchor an account may sustain before it is blown.
package mll

import "sort"

// Status is the breach verdict for an account.
type Status int

const (
	// StatusUnknown means no EOD anchor exists yet (cold start, first
	// rollover pending). It is a legitimate outcome, not an error.
	StatusUnknown Status = iota
	StatusAlive
	StatusBlown
)

func (s Status) String() string {
	switch s {
	case StatusAlive:
		return "ALIVE"
	case StatusBlown:
		return "BLOWN"
	default:
		return "UNKNOWN"
	}
}

// Warning is the advisory usage tier. It never affects Status.
type Warning int

const (
	WarnNone Warning = iota
	WarnLow
	WarnMedium
	WarnHigh
	WarnCritical
)

func (w Warning) String() string {
	switch w {
	case WarnLow:
		return "LOW"
	case WarnMedium:
		return "MEDIUM"
	case WarnHigh:
		return "HIGH"
	case WarnCritical:
		return "CRITICAL"
	default:
		return "NONE"
	}
}

// Verdict reason codes.
const (
	ReasonMissingAnchor = "missing_anchor"
	ReasonBlown         = "mll_blown"
	ReasonWithinLimits  = "within_limits"
)

// epsilon absorbs floating rounding at the floor comparison: one cent.
const epsilon = 0.01

// Tier maps a starting-balance breakpoint to its loss budget.
type Tier struct {
	MaxBalance float64 // inclusive upper bound; 0 means "everything above"
	Budget     float64 // loss allowance in currency units
	Label      string  // plan size, e.g. "50K"
}

// Table is the tier table, ordered by ascending MaxBalance with the open
// top tier (MaxBalance 0) last.
type Table []Tier

// DefaultTable is the standard three-tier plan ladder.
func DefaultTable() Table {
	return Table{
		{MaxBalance: 50000, Budget: 2000, Label: "50K"},
		{MaxBalance: 100000, Budget: 3000, Label: "100K"},
		{MaxBalance: 0, Budget: 4500, Label: "150K"},
	}
}

// Lookup classifies a starting balance into its tier.
func (t Table) Lookup(startingBalance float64) Tier {
	bounded := make(Table, 0, len(t))
	var top Tier
	for _, tier := range t {
		if tier.MaxBalance == 0 {
			top = tier
			continue
		}
		bounded = append(bounded, tier)
	}
	sort.Slice(bounded, func(i, j int) bool { return bounded[i].MaxBalance < bounded[j].MaxBalance })
	for _, tier := range bounded {
		if startingBalance <= tier.MaxBalance {
			return tier
		}
	}
	return top
}

// Inputs to a single evaluation.
type Inputs struct {
	AccountID       string
	StartingBalance float64
	EODHighAnchor   float64
	CurrentEquity   float64
}

// Verdict is the derived, never-persisted outcome of evaluating current
// equity against the floor. Floor, Used, Remaining and PctUsed are only
// meaningful when Status is not StatusUnknown.
type Verdict struct {
	AccountID       string
	PlanLabel       string
	BaseLimit       float64
	StartingBalance float64
	EODHighAnchor   float64
	CurrentEquity   float64

	Floor     float64
	Used      float64
	Remaining float64
	PctUsed   float64

	Status  Status
	Reason  string
	Warning Warning
}

// Evaluate computes the MLL verdict. Pure: recompute it on every equity
// update, never cache it.
func (t Table) Evaluate(in Inputs) Verdict {
	tier := t.Lookup(in.StartingBalance)

	v := Verdict{
		AccountID:       in.AccountID,
		PlanLabel:       tier.Label,
		BaseLimit:       tier.Budget,
		StartingBalance: in.StartingBalance,
		EODHighAnchor:   in.EODHighAnchor,
		CurrentEquity:   in.CurrentEquity,
	}

	if in.EODHighAnchor <= 0 {
		v.Status = StatusUnknown
		v.Reason = ReasonMissingAnchor
		return v
	}

	rawFloor := in.EODHighAnchor - tier.Budget
	// The floor is frozen at the starting balance: the high-water mark can
	// never push it above the funded amount.
	v.Floor = min(in.StartingBalance, rawFloor)
	v.Used = in.EODHighAnchor - in.CurrentEquity
	v.Remaining = tier.Budget - v.Used
	if tier.Budget > 0 {
		v.PctUsed = v.Used / tier.Budget * 100
	}

	if in.CurrentEquity <= v.Floor+epsilon {
		v.Status = StatusBlown
		v.Reason = ReasonBlown
	} else {
		v.Status = StatusAlive
		v.Reason = ReasonWithinLimits
	}
	v.Warning = warningFor(v.PctUsed)
	return v
}

func warningFor(pctUsed float64) Warning {
	switch {
	case pctUsed >= 95:
		return WarnCritical
	case pctUsed >= 90:
		return WarnHigh
	case pctUsed >= 80:
		return WarnMedium
	case pctUsed >= 70:
		return WarnLow
	default:
		return WarnNone
	}
}
