// Package journal records the monitor's audit events: daily rollovers and
// MLL breaches. The anchor store keeps no history of its own; this is the
// consumer of the core's audit outputs.
package journal

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RolloverEvent is one account's daily anchor fold.
type RolloverEvent struct {
	EventID       string
	AccountID     string
	TradingDate   string
	FoldedHigh    float64
	EODHighAnchor float64
	Time          time.Time
}

// BreachEvent is an account crossing its MLL floor. Recorded once per
// lockout cycle.
type BreachEvent struct {
	EventID   string
	AccountID string
	Floor     float64
	Equity    float64
	Used      float64
	Remaining float64
	Reason    string
	Time      time.Time
}

type Journal interface {
	RecordRollover(RolloverEvent) error
	RecordBreach(BreachEvent) error
	Close() error
}

// Nop discards all events; used when journaling is disabled.
type Nop struct{}

func (Nop) RecordRollover(RolloverEvent) error { return nil }
func (Nop) RecordBreach(BreachEvent) error     { return nil }
func (Nop) Close() error                       { return nil }

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand so ULID entropy is unpredictable. The
	// monotonic reader keeps IDs generated within the same millisecond
	// lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewEventID returns a time-sortable ULID string for an event.
func NewEventID() string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), mono)
	if err != nil {
		// Only possible if time goes backwards or entropy fails.
		panic(err)
	}
	return id.String()
}
