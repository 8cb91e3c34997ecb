package anchor

// Record is the persisted anchor state for a single account. StartingBalance
// and IntradayHigh are pointers so that "unset" and "absent" are distinct
// from a legitimate zero value; both serialize as omitted fields.
type Record struct {
	AccountID        string   `json:"account_id"`
	StartingBalance  *float64 `json:"starting_balance,omitempty"`
	EODHighAnchor    float64  `json:"eod_high_anchor"`
	IntradayHigh     *float64 `json:"intraday_high_today,omitempty"`
	LastRolloverDate string   `json:"last_rollover_date,omitempty"`
	LockedOut        bool     `json:"locked_out"`
}

// StartingBalanceSet reports whether the set-once starting balance has been
// written.
func (r *Record) StartingBalanceSet() bool {
	return r.StartingBalance != nil
}

// StartingBalanceValue returns the starting balance, or 0 when unset.
func (r *Record) StartingBalanceValue() float64 {
	if r.StartingBalance == nil {
		return 0
	}
	return *r.StartingBalance
}

// IntradayHighSet reports whether an intraday high has been observed since
// the last rollover.
func (r *Record) IntradayHighSet() bool {
	return r.IntradayHigh != nil
}

// IntradayHighValue returns today's intraday high, or 0 when absent.
func (r *Record) IntradayHighValue() float64 {
	if r.IntradayHigh == nil {
		return 0
	}
	return *r.IntradayHigh
}

// clone returns a deep copy so callers can never mutate store-owned state
// through a snapshot.
func (r *Record) clone() *Record {
	c := *r
	if r.StartingBalance != nil {
		v := *r.StartingBalance
		c.StartingBalance = &v
	}
	if r.IntradayHigh != nil {
		v := *r.IntradayHigh
		c.IntradayHigh = &v
	}
	return &c
}
