package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// CSVJournal appends events to two CSV files, one per event kind. Files are
// opened in append mode; headers are written only when the file is new.
type CSVJournal struct {
	rollovers *csv.Writer
	breaches  *csv.Writer
	rf, bf    *os.File
}

func NewCSV(rolloversPath, breachesPath string) (*CSVJournal, error) {
	rf, rw, err := openCSV(rolloversPath, []string{
		"event_id", "account_id", "trading_date", "folded_high", "eod_high_anchor", "time",
	})
	if err != nil {
		return nil, err
	}
	bf, bw, err := openCSV(breachesPath, []string{
		"event_id", "account_id", "floor", "equity", "used", "remaining", "reason", "time",
	})
	if err != nil {
		rf.Close()
		return nil, err
	}
	return &CSVJournal{rollovers: rw, breaches: bw, rf: rf, bf: bf}, nil
}

func openCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	info, err := os.Stat(path)
	fresh := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSVJournal) RecordRollover(e RolloverEvent) error {
	if err := j.rollovers.Write([]string{
		e.EventID,
		e.AccountID,
		e.TradingDate,
		f(e.FoldedHigh),
		f(e.EODHighAnchor),
		e.Time.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	j.rollovers.Flush()
	return j.rollovers.Error()
}

func (j *CSVJournal) RecordBreach(e BreachEvent) error {
	if err := j.breaches.Write([]string{
		e.EventID,
		e.AccountID,
		f(e.Floor),
		f(e.Equity),
		f(e.Used),
		f(e.Remaining),
		e.Reason,
		e.Time.Format(time.RFC3339),
	}); err != nil {
		return err
	}
	j.breaches.Flush()
	return j.breaches.Error()
}

func (j *CSVJournal) Close() error {
	j.rollovers.Flush()
	if err := j.rollovers.Error(); err != nil {
		return err
	}
	j.breaches.Flush()
	if err := j.breaches.Error(); err != nil {
		return err
	}

	if err := j.rf.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
