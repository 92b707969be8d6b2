package engine

import (
	"sync"
	"time"

	"github.com/playtrack-dev/playtrack/internal/state"
)

// Status is a point-in-time view of the engine for the ops endpoint.
type Status struct {
	StartedAt         time.Time `json:"started_at"`
	CyclesCompleted   int64     `json:"cycles_completed"`
	NotificationsSent int64     `json:"notifications_sent"`
	LastCycleAt       time.Time `json:"last_cycle_at"`
	LedgerEntries     int       `json:"ledger_entries"`
	CacheEntries      int       `json:"cache_entries"`
}

// stats is the only engine state read from outside the poll goroutine,
// so it carries its own lock. Counts are copied in at cycle boundaries;
// the ledger and cache maps themselves are never touched concurrently.
type stats struct {
	mu      sync.Mutex
	current Status
}

func (s *stats) init(now time.Time, st *state.EngineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.StartedAt = now
	s.current.LedgerEntries = st.Ledger.Len()
	s.current.CacheEntries = st.Cache.Len()
}

func (s *stats) recordCycle(at time.Time, sent int, st *state.EngineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.CyclesCompleted++
	s.current.NotificationsSent += int64(sent)
	s.current.LastCycleAt = at
	s.current.LedgerEntries = st.Ledger.Len()
	s.current.CacheEntries = st.Cache.Len()
}

func (s *stats) recordSweep(st *state.EngineState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.LedgerEntries = st.Ledger.Len()
	s.current.CacheEntries = st.Cache.Len()
}

// Status returns a copy of the current run statistics. Safe to call
// from any goroutine.
func (e *Engine) Status() Status {
	e.stats.mu.Lock()
	defer e.stats.mu.Unlock()
	return e.stats.current
}
