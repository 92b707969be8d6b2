// Package scan discovers completed sessions by combining the key
// enumerator and record fetcher for one (principal, date) pair.
package scan

import (
	"context"
	"errors"
	"log/slog"

	"github.com/playtrack-dev/playtrack/internal/core/session"
	"github.com/playtrack-dev/playtrack/internal/store"
)

// KeyLister enumerates all record keys for a principal and date.
// A partial key slice may accompany a non-nil error after exhausted
// retries.
type KeyLister interface {
	List(ctx context.Context, principal, dateKey string) ([]session.Key, error)
}

// RecordGetter fetches a single record. store.ErrNotFound means the entry
// is genuinely absent; any other error is an exhausted transport retry.
type RecordGetter interface {
	Get(ctx context.Context, key session.Key) (session.Record, error)
}

// Result is one discovered completed session.
type Result struct {
	Key    session.Key
	Record session.Record
}

// Scanner classifies a principal's records for one date into completed
// sessions, preserving the store's enumeration order.
type Scanner struct {
	lister KeyLister
	getter RecordGetter
}

// NewScanner creates a session scanner.
func NewScanner(lister KeyLister, getter RecordGetter) *Scanner {
	return &Scanner{lister: lister, getter: getter}
}

// Scan returns all completed sessions for (principal, dateKey). The
// second return value reports whether the scan saw the store's full data:
// false when the listing was partial or any fetch exhausted its retries,
// in which case the results that were obtained are still returned.
// Open and absent records are normal outcomes and do not degrade the scan.
func (s *Scanner) Scan(ctx context.Context, principal, dateKey string) ([]Result, bool) {
	complete := true

	keys, err := s.lister.List(ctx, principal, dateKey)
	if err != nil {
		complete = false
	}

	var results []Result
	for _, key := range keys {
		rec, err := s.getter.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				slog.Warn("[Scanner] Record unreadable this cycle",
					"key", key.Raw,
					"error", err,
				)
				complete = false
			}
			continue
		}
		if !rec.Completed() {
			continue
		}
		if _, ok := rec.DurationMinutes(); !ok {
			// Completed but with a non-positive interval; nothing to count.
			continue
		}
		results = append(results, Result{Key: key, Record: rec})
	}

	return results, complete
}
