package aggregate

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/playtrack-dev/playtrack/internal/core/session"
	"github.com/playtrack-dev/playtrack/internal/scan"
)

// Source recomputes a day's raw data: all completed sessions for one
// principal and date. The boolean reports whether the scan saw complete
// data; a false value marks the recomputation as degraded.
type Source interface {
	Scan(ctx context.Context, principal, dateKey string) ([]scan.Result, bool)
}

type entry struct {
	minutes    int64
	computedAt time.Time
}

// Options configures a Cache.
type Options struct {
	// Principals is the configured identity list; the all-principals
	// scope is composed by summing over it.
	Principals []string
	// DailyTTL is the freshness window for the current day's totals.
	DailyTTL time.Duration
	// MonthlyTTL is the freshness window for the current month's totals.
	MonthlyTTL time.Duration
	// Flush, when non-nil, is invoked after every entry refresh so the
	// snapshot on disk tracks the in-memory state.
	Flush func()
}

// Cache memoizes summed durations with tiered freshness: current-period
// entries expire on a short TTL; entries for fully elapsed periods are
// permanent once computed and are never recomputed, not even on a forced
// read. Single-owner: only the poll loop mutates it.
type Cache struct {
	source  Source
	clock   clockwork.Clock
	opts    Options
	entries map[Key]entry
}

// NewCache creates an empty aggregate cache.
func NewCache(source Source, clock clockwork.Clock, opts Options) *Cache {
	return &Cache{
		source:  source,
		clock:   clock,
		opts:    opts,
		entries: make(map[Key]entry),
	}
}

// DailyTotal returns the summed completed-session minutes for one day.
// principal empty means all principals. A fresh entry is served without
// touching the store; a stale or missing one triggers exactly one
// recomputation pass. The boolean is the degraded flag: true when the
// recomputation could not see complete data and a previous (or zero)
// value was served instead.
func (c *Cache) DailyTotal(ctx context.Context, principal, dayKey string, force bool) (int64, bool) {
	k := Key{Principal: principal, Period: PeriodDay, PeriodKey: dayKey}
	now := c.clock.Now()

	if e, ok := c.entries[k]; ok {
		if dayKey != session.DayKey(now) {
			// Elapsed day: immutable once computed.
			return e.minutes, false
		}
		if !force && now.Sub(e.computedAt) < c.opts.DailyTTL {
			return e.minutes, false
		}
	}

	var total int64
	degraded := false
	if principal == "" {
		// Compose the all-principals total from per-principal day
		// entries rather than re-deriving from raw records.
		for _, p := range c.opts.Principals {
			v, d := c.DailyTotal(ctx, p, dayKey, false)
			total += v
			degraded = degraded || d
		}
	} else {
		results, complete := c.source.Scan(ctx, principal, dayKey)
		degraded = !complete
		for _, r := range results {
			minutes, ok := r.Record.DurationMinutes()
			if !ok {
				continue
			}
			total += minutes
		}
	}

	if degraded {
		return c.fallback(k)
	}

	c.put(k, total, now)
	return total, false
}

// MonthlyTotal returns the summed minutes for one month, composed from
// daily totals for day 1 through either the month's last day or, for the
// current month, today. Sub-results reuse fresh daily entries; normally
// only today's is recomputed.
func (c *Cache) MonthlyTotal(ctx context.Context, principal, monthKey string, force bool) (int64, bool) {
	k := Key{Principal: principal, Period: PeriodMonth, PeriodKey: monthKey}
	now := c.clock.Now()
	current := monthKey == session.MonthKey(now)

	if e, ok := c.entries[k]; ok {
		if !current {
			return e.minutes, false
		}
		if !force && now.Sub(e.computedAt) < c.opts.MonthlyTTL {
			return e.minutes, false
		}
	}

	lastDay := now.UTC().Day()
	if !current {
		days, err := session.DaysInMonth(monthKey)
		if err != nil {
			slog.Warn("[AggregateCache] Unusable month key", "month", monthKey, "error", err)
			return c.fallback(k)
		}
		lastDay = days
	}

	var total int64
	degraded := false
	for day := 1; day <= lastDay; day++ {
		dayKey, err := session.DayInMonth(monthKey, day)
		if err != nil {
			slog.Warn("[AggregateCache] Unusable month key", "month", monthKey, "error", err)
			return c.fallback(k)
		}
		v, d := c.DailyTotal(ctx, principal, dayKey, false)
		total += v
		degraded = degraded || d
	}

	if degraded {
		return c.fallback(k)
	}

	c.put(k, total, now)
	return total, false
}

// InvalidateDay clears the cached aggregates a newly discovered completed
// session makes stale: the principal's day and month entries plus the
// all-principals entries for the same periods. The next read recomputes.
func (c *Cache) InvalidateDay(principal, dayKey string) {
	delete(c.entries, Key{Principal: principal, Period: PeriodDay, PeriodKey: dayKey})
	delete(c.entries, Key{Principal: "", Period: PeriodDay, PeriodKey: dayKey})

	monthKey, err := session.MonthOfDay(dayKey)
	if err != nil {
		slog.Warn("[AggregateCache] Unusable day key on invalidate", "day", dayKey, "error", err)
		return
	}
	delete(c.entries, Key{Principal: principal, Period: PeriodMonth, PeriodKey: monthKey})
	delete(c.entries, Key{Principal: "", Period: PeriodMonth, PeriodKey: monthKey})
}

// Purge removes entries for fully elapsed periods that ended before
// cutoff and returns the number removed. Current-period entries are
// never purged.
func (c *Cache) Purge(cutoff time.Time) int {
	purged := 0
	for k := range c.entries {
		var end time.Time
		var err error
		switch k.Period {
		case PeriodMonth:
			end, err = session.MonthEnd(k.PeriodKey)
		default:
			end, err = session.DayEnd(k.PeriodKey)
		}
		if err != nil {
			continue
		}
		if end.Before(cutoff) {
			delete(c.entries, k)
			purged++
		}
	}
	return purged
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// fallback serves the retained previous value for k, or zero when none
// exists, always with the degraded flag set. The stored entry is left
// untouched so a later successful recomputation starts from clean state.
func (c *Cache) fallback(k Key) (int64, bool) {
	if e, ok := c.entries[k]; ok {
		return e.minutes, true
	}
	return 0, true
}

func (c *Cache) put(k Key, minutes int64, now time.Time) {
	c.entries[k] = entry{minutes: minutes, computedAt: now}
	if c.opts.Flush != nil {
		c.opts.Flush()
	}
}

// SnapshotEntry is the serialized form of one cache entry.
type SnapshotEntry struct {
	Principal  string    `json:"principal,omitempty"`
	Period     string    `json:"period"`
	PeriodKey  string    `json:"period_key"`
	Minutes    int64     `json:"minutes"`
	ComputedAt time.Time `json:"computed_at"`
}

// Export returns all entries in deterministic order for snapshotting.
func (c *Cache) Export() []SnapshotEntry {
	out := make([]SnapshotEntry, 0, len(c.entries))
	for k, e := range c.entries {
		out = append(out, SnapshotEntry{
			Principal:  k.Principal,
			Period:     k.Period.String(),
			PeriodKey:  k.PeriodKey,
			Minutes:    e.minutes,
			ComputedAt: e.computedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.PeriodKey != b.PeriodKey {
			return a.PeriodKey < b.PeriodKey
		}
		return a.Principal < b.Principal
	})
	return out
}

// Import replaces the cache contents from a snapshot. Entries with an
// unknown period label are dropped with a warning rather than failing
// the load.
func (c *Cache) Import(entries []SnapshotEntry) {
	c.entries = make(map[Key]entry, len(entries))
	for _, se := range entries {
		period, ok := parsePeriod(se.Period)
		if !ok {
			slog.Warn("[AggregateCache] Dropping snapshot entry with unknown period", "period", se.Period)
			continue
		}
		k := Key{Principal: se.Principal, Period: period, PeriodKey: se.PeriodKey}
		c.entries[k] = entry{minutes: se.Minutes, computedAt: se.ComputedAt}
	}
}
