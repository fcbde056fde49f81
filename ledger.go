package markerbed

import (
	"sync"
	"time"
)

// Ledger counts ingestion outcomes for one Store. It lives in memory only and
// starts from zero with every process.
type Ledger struct {
	mu          sync.Mutex
	requests    int64
	successes   int64
	errors      int64
	lastUpdate  time.Time
	lastRequest time.Time
}

// LedgerSnapshot is a point-in-time copy of a Ledger.
type LedgerSnapshot struct {
	Requests    int64     `json:"totalRequests"`
	Successes   int64     `json:"successfulUpdates"`
	Errors      int64     `json:"errors"`
	LastUpdate  time.Time `json:"lastUpdate"`
	LastRequest time.Time `json:"lastRequest"`
}

// record counts one finished operation. LastUpdate only moves on success.
func (l *Ledger) record(success bool, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests++
	l.lastRequest = at
	if success {
		l.successes++
		l.lastUpdate = at
	} else {
		l.errors++
	}
}

// Snapshot returns the current counters.
func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LedgerSnapshot{
		Requests:    l.requests,
		Successes:   l.successes,
		Errors:      l.errors,
		LastUpdate:  l.lastUpdate,
		LastRequest: l.lastRequest,
	}
}
