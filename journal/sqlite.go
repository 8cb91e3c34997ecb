package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordRollover(e RolloverEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO rollovers
		(event_id, account_id, trading_date, folded_high, eod_high_anchor, time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.EventID, e.AccountID, e.TradingDate, e.FoldedHigh, e.EODHighAnchor,
		e.Time.UTC().Format(time.RFC3339),
	)
	return err
}

func (j *SQLiteJournal) RecordBreach(e BreachEvent) error {
	_, err := j.db.Exec(`
		INSERT INTO breaches
		(event_id, account_id, floor, equity, used, remaining, reason, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.AccountID, e.Floor, e.Equity, e.Used, e.Remaining,
		e.Reason, e.Time.UTC().Format(time.RFC3339),
	)
	return err
}

// Rollovers returns the recorded rollover events for an account, newest
// first.
func (j *SQLiteJournal) Rollovers(accountID string) ([]RolloverEvent, error) {
	rows, err := j.db.Query(`
		SELECT event_id, account_id, trading_date, folded_high, eod_high_anchor, time
		FROM rollovers WHERE account_id = ? ORDER BY event_id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []RolloverEvent
	for rows.Next() {
		var e RolloverEvent
		var ts string
		if err := rows.Scan(&e.EventID, &e.AccountID, &e.TradingDate, &e.FoldedHigh, &e.EODHighAnchor, &ts); err != nil {
			return nil, err
		}
		if e.Time, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
