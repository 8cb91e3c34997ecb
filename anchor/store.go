package anchor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// ErrInvalidBalance is returned when a caller passes a non-positive starting
// balance. The set-once rule itself is not an error: a second set is a no-op.
var ErrInvalidBalance = errors.New("starting balance must be positive")

// Store owns the full set of account anchor Records and the backing JSON
// document. All mutators stage the change on a copy, write the document
// durably, and only then commit the copy in memory, so a failed write never
// leaves memory ahead of disk. Accounts are created lazily and never deleted.
type Store struct {
	mu   sync.Mutex
	path string
	recs map[string]*Record
	log  zerolog.Logger
}

// Open loads the anchor document at path, creating the parent directory if
// needed. A missing or corrupt document yields an empty store: accounts
// self-bootstrap, so failing open on cold start is preferable to refusing to
// run.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create anchor dir: %w", err)
	}

	s := &Store{
		path: path,
		recs: make(map[string]*Record),
		log:  log,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read anchor file: %w", err)
		}
		log.Info().Str("path", path).Msg("no anchor file found, starting fresh")
		return s, nil
	}

	var doc map[string]*Record
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Error().Err(err).Str("path", path).
			Msg("anchor file corrupt, starting with empty store")
		return s, nil
	}

	for id, rec := range doc {
		rec.AccountID = id
		s.recs[id] = rec
	}
	log.Info().Int("accounts", len(s.recs)).Msg("loaded anchors from disk")
	return s, nil
}

// GetOrCreate returns a snapshot of the account's record, creating a
// zero-valued one in memory if the account has not been seen before.
// Creation alone is not persisted; the record reaches disk with its first
// real mutation.
func (s *Store) GetOrCreate(accountID string) *Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(accountID).clone()
}

func (s *Store) getLocked(accountID string) *Record {
	rec, ok := s.recs[accountID]
	if !ok {
		rec = &Record{AccountID: accountID}
		s.recs[accountID] = rec
		s.log.Info().Str("account", accountID).Msg("created new anchor record")
	}
	return rec
}

// SetStartingBalance writes the set-once starting balance. A record whose
// balance is already set is left untouched, whatever the new value. A
// non-positive balance is a caller contract violation.
func (s *Store) SetStartingBalance(accountID string, balance float64) error {
	if balance <= 0 {
		return fmt.Errorf("account %s: %w", accountID, ErrInvalidBalance)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getLocked(accountID)
	if rec.StartingBalanceSet() {
		return nil
	}

	staged := rec.clone()
	staged.StartingBalance = &balance
	if err := s.commitLocked(staged); err != nil {
		return err
	}
	s.log.Info().Str("account", accountID).Float64("starting_balance", balance).
		Msg("set starting balance")
	return nil
}

// RaiseEODHigh raises the end-of-day high anchor to candidate if that is an
// increase. Lower candidates are ignored, and no write reaches disk unless
// the value actually moved.
func (s *Store) RaiseEODHigh(accountID string, candidate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raiseEODHighLocked(accountID, candidate)
}

func (s *Store) raiseEODHighLocked(accountID string, candidate float64) error {
	rec := s.getLocked(accountID)
	if candidate <= rec.EODHighAnchor {
		return nil
	}

	staged := rec.clone()
	staged.EODHighAnchor = candidate
	if err := s.commitLocked(staged); err != nil {
		return err
	}
	s.log.Info().Str("account", accountID).
		Float64("old_anchor", rec.EODHighAnchor).
		Float64("new_anchor", candidate).
		Msg("raised EOD high anchor")
	return nil
}

// RaiseIntradayHigh records equity as today's intraday high if it beats the
// current one. Any equity beats an absent high.
func (s *Store) RaiseIntradayHigh(accountID string, equity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getLocked(accountID)
	if rec.IntradayHighSet() && equity <= rec.IntradayHighValue() {
		return nil
	}

	staged := rec.clone()
	staged.IntradayHigh = &equity
	return s.commitLocked(staged)
}

// ResetIntradayHigh clears today's intraday high.
func (s *Store) ResetIntradayHigh(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getLocked(accountID)
	if !rec.IntradayHighSet() {
		return nil
	}

	staged := rec.clone()
	staged.IntradayHigh = nil
	return s.commitLocked(staged)
}

// SetLockedOut sets or clears the lockout flag.
func (s *Store) SetLockedOut(accountID string, locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getLocked(accountID)
	if rec.LockedOut == locked {
		return nil
	}

	staged := rec.clone()
	staged.LockedOut = locked
	if err := s.commitLocked(staged); err != nil {
		return err
	}
	s.log.Info().Str("account", accountID).Bool("locked_out", locked).
		Msg("set lockout status")
	return nil
}

// IsRolloverDue reports whether the account has not yet rolled over on the
// given trading date. LastRolloverDate is the idempotency key: it is only
// stamped by Fold.
func (s *Store) IsRolloverDue(accountID, today string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(accountID).LastRolloverDate != today
}

// Fold is the rollover transaction: fold today's intraday high (or, when
// none was observed, fallbackEquity) into the EOD high anchor, reset the
// intraday high, clear the lockout, and stamp the rollover date. The whole
// transition is staged and committed as one durable write, so a crash can
// never stamp the date without the fold having happened.
func (s *Store) Fold(accountID, today string, fallbackEquity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.getLocked(accountID)

	foldedHigh := fallbackEquity
	if rec.IntradayHighSet() {
		foldedHigh = rec.IntradayHighValue()
	}

	staged := rec.clone()
	if foldedHigh > staged.EODHighAnchor {
		staged.EODHighAnchor = foldedHigh
	}
	staged.IntradayHigh = nil
	staged.LockedOut = false
	staged.LastRolloverDate = today

	if err := s.commitLocked(staged); err != nil {
		return err
	}
	s.log.Info().Str("account", accountID).
		Float64("folded_high", foldedHigh).
		Float64("eod_high_anchor", staged.EODHighAnchor).
		Str("rollover_date", today).
		Msg("performed rollover fold")
	return nil
}

// AccountIDs returns every known account identifier, sorted.
func (s *Store) AccountIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.recs))
	for id := range s.recs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshots returns deep copies of every record, sorted by account ID.
func (s *Store) Snapshots() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Record, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

// commitLocked writes the full document with staged substituted for the
// current record, then swaps staged into the map. Callers hold s.mu.
func (s *Store) commitLocked(staged *Record) error {
	doc := make(map[string]*Record, len(s.recs))
	for id, rec := range s.recs {
		doc[id] = rec
	}
	doc[staged.AccountID] = staged

	if err := writeDocument(s.path, doc); err != nil {
		return fmt.Errorf("persist anchors: %w", err)
	}
	s.recs[staged.AccountID] = staged
	return nil
}

// writeDocument rewrites the anchor document atomically: marshal, write to a
// temp file in the same directory, fsync, rename over the target. A partial
// write can therefore never corrupt the live document.
func writeDocument(path string, doc map[string]*Record) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal anchors: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".anchors-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
