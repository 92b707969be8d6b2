// Package ledger implements the append-only record of sessions already
// notified. It is the idempotency gate in front of the notification sink:
// a key present here is never notified again, across any number of poll
// cycles and process restarts.
package ledger

import (
	"time"

	"github.com/playtrack-dev/playtrack/internal/core/session"
)

// Ledger maps raw record keys to the wall-clock time of their first
// confirmed notification. Single-owner: only the poll loop mutates it.
type Ledger struct {
	entries map[string]time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]time.Time)}
}

// HasNotified reports whether key's session has already been notified.
func (l *Ledger) HasNotified(key session.Key) bool {
	_, ok := l.entries[key.Raw]
	return ok
}

// MarkNotified records a confirmed notification for key. Marking an
// already-present key is a no-op; the original timestamp is kept so
// retention ages from the first notification.
func (l *Ledger) MarkNotified(key session.Key, at time.Time) {
	if _, ok := l.entries[key.Raw]; ok {
		return
	}
	l.entries[key.Raw] = at
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Purge removes every entry first notified before cutoff and returns the
// number removed.
func (l *Ledger) Purge(cutoff time.Time) int {
	purged := 0
	for key, at := range l.entries {
		if at.Before(cutoff) {
			delete(l.entries, key)
			purged++
		}
	}
	return purged
}

// Export returns a copy of the ledger map for snapshotting.
func (l *Ledger) Export() map[string]time.Time {
	out := make(map[string]time.Time, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Import replaces the ledger contents from a snapshot.
func (l *Ledger) Import(entries map[string]time.Time) {
	l.entries = make(map[string]time.Time, len(entries))
	for k, v := range entries {
		l.entries[k] = v
	}
}
