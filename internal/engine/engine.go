// Package engine drives the poll cycle: scan every tracked principal,
// gate discovered sessions through the dedup ledger, enrich with cached
// aggregates, deliver, and persist. One cooperative loop owns all
// mutable state; cycles never overlap and the retention sweeper only
// runs at cycle boundaries.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/playtrack-dev/playtrack/internal/aggregate"
	"github.com/playtrack-dev/playtrack/internal/core/session"
	"github.com/playtrack-dev/playtrack/internal/notify"
	"github.com/playtrack-dev/playtrack/internal/scan"
	"github.com/playtrack-dev/playtrack/internal/state"
)

// Scanner discovers completed sessions for one principal and date.
type Scanner interface {
	Scan(ctx context.Context, principal, dateKey string) ([]scan.Result, bool)
}

// Options configures the engine.
type Options struct {
	Principals      []string
	PollInterval    time.Duration
	SweepInterval   time.Duration
	LedgerRetention time.Duration
	CacheRetention  time.Duration
}

// Engine owns the poll loop and the retention sweeper.
type Engine struct {
	opts      Options
	scanner   Scanner
	state     *state.EngineState
	sink      notify.Sink
	persister state.Persister
	clock     clockwork.Clock
	stats     stats
}

// New creates an engine. The state must already be restored from the
// persister by the caller.
func New(opts Options, scanner Scanner, st *state.EngineState, sink notify.Sink, persister state.Persister, clock clockwork.Clock) *Engine {
	e := &Engine{
		opts:      opts,
		scanner:   scanner,
		state:     st,
		sink:      sink,
		persister: persister,
		clock:     clock,
	}
	e.stats.init(clock.Now(), st)
	return e
}

// Run executes poll cycles until ctx is cancelled, with the retention
// sweeper interleaved on its own timer. Both share one goroutine, so a
// sweep can never observe a cycle's partial state. A best-effort final
// snapshot save runs on shutdown.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("[Engine] Starting poll loop",
		"principals", len(e.opts.Principals),
		"poll_interval", e.opts.PollInterval,
		"sweep_interval", e.opts.SweepInterval,
	)

	pollTicker := e.clock.NewTicker(e.opts.PollInterval)
	defer pollTicker.Stop()
	sweepTicker := e.clock.NewTicker(e.opts.SweepInterval)
	defer sweepTicker.Stop()

	e.runCycle(ctx)

	for {
		select {
		case <-pollTicker.Chan():
			e.runCycle(ctx)
		case <-sweepTicker.Chan():
			e.sweep(ctx)
		case <-ctx.Done():
			slog.Info("[Engine] Stopping (context cancelled)")
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			e.flush(flushCtx)
			return nil
		}
	}
}

// runCycle scans every principal for the current date and notifies each
// completed, not-yet-notified session. Per-principal failures degrade
// that principal's data for the cycle but never abort the loop.
func (e *Engine) runCycle(ctx context.Context) {
	cycleID := uuid.NewString()[:8]
	now := e.clock.Now()
	today := session.DayKey(now)

	sent := 0
	for _, principal := range e.opts.Principals {
		results, complete := e.scanner.Scan(ctx, principal, today)
		if !complete {
			slog.Warn("[Engine] Scan saw partial data",
				"cycle", cycleID,
				"principal", principal,
				"date", today,
			)
		}
		for _, r := range results {
			if e.state.Ledger.HasNotified(r.Key) {
				continue
			}
			if e.notifySession(ctx, cycleID, r) {
				sent++
			}
		}
	}

	e.stats.recordCycle(e.clock.Now(), sent, e.state)
	if sent > 0 {
		slog.Info("[Engine] Poll cycle complete",
			"cycle", cycleID,
			"date", today,
			"notified", sent,
		)
	}
}

// notifySession delivers one newly completed session. The ledger is
// marked only after the sink confirms delivery; a failure leaves the
// session un-notified for the next cycle.
func (e *Engine) notifySession(ctx context.Context, cycleID string, r scan.Result) bool {
	minutes, ok := r.Record.DurationMinutes()
	if !ok {
		return false
	}

	// The new session makes the cached totals stale; clear them so the
	// reads below recompute instead of serving a fresh-looking value.
	e.state.Cache.InvalidateDay(r.Key.Principal, r.Key.DateKey)

	now := e.clock.Now()
	today := session.DayKey(now)
	month := session.MonthKey(now)

	todayTotal, todayDegraded := e.state.Cache.DailyTotal(ctx, "", today, false)
	monthTotal, monthDegraded := e.state.Cache.MonthlyTotal(ctx, "", month, false)

	payload := notify.Payload{
		Principal:           r.Key.Principal,
		JoinTime:            r.Record.Join(),
		LeaveTime:           r.Record.Leave(),
		SessionMinutes:      minutes,
		TodayMinutes:        todayTotal,
		MonthMinutes:        monthTotal,
		DailyAverageMinutes: aggregate.DailyAverage(monthTotal, now.UTC().Day()),
		Degraded:            todayDegraded || monthDegraded,
		SentAt:              now,
	}

	if err := e.sink.Send(ctx, payload); err != nil {
		slog.Error("[Engine] Notification delivery failed",
			"cycle", cycleID,
			"key", r.Key.Raw,
			"error", err,
		)
		return false
	}

	e.state.Ledger.MarkNotified(r.Key, now)
	e.flush(ctx)

	slog.Info("[Engine] Session notified",
		"cycle", cycleID,
		"principal", r.Key.Principal,
		"minutes", minutes,
		"today_total", todayTotal,
	)
	return true
}

// sweep purges ledger and cache entries past their retention horizons
// and persists only when something was actually removed.
func (e *Engine) sweep(ctx context.Context) int {
	now := e.clock.Now()
	ledgerPurged := e.state.Ledger.Purge(now.Add(-e.opts.LedgerRetention))
	cachePurged := e.state.Cache.Purge(now.Add(-e.opts.CacheRetention))

	total := ledgerPurged + cachePurged
	if total > 0 {
		e.flush(ctx)
		slog.Info("[Sweeper] Retention sweep purged entries",
			"ledger", ledgerPurged,
			"cache", cachePurged,
		)
	}
	e.stats.recordSweep(e.state)
	return total
}

// flush persists the current snapshot. A write failure is logged, not
// fatal: in-memory state stays authoritative until a later save lands.
func (e *Engine) flush(ctx context.Context) {
	snap := e.state.Snapshot(e.clock.Now())
	if err := e.persister.Save(ctx, snap); err != nil {
		slog.Error("[Engine] Snapshot save failed", "error", err)
	}
}
