// Package state owns the engine's durable state: the explicit EngineState
// value threaded through the poll loop, its serializable snapshot
// document, and the persistence backends that store it.
package state

import (
	"context"
	"time"

	"github.com/playtrack-dev/playtrack/internal/aggregate"
	"github.com/playtrack-dev/playtrack/internal/ledger"
)

// snapshotSchemaVersion guards forward readability of persisted
// documents. Bump only with a migration path for old snapshots.
const snapshotSchemaVersion = 1

// Snapshot is the on-disk projection of ledger plus aggregate cache,
// written as one atomic document.
type Snapshot struct {
	Version    int                       `json:"version"`
	SavedAt    time.Time                 `json:"saved_at"`
	Ledger     map[string]time.Time      `json:"ledger"`
	Aggregates []aggregate.SnapshotEntry `json:"aggregates"`
}

// EngineState bundles the two single-owner data structures the poll loop
// mutates. Constructed once at startup and threaded by reference; never
// module-level.
type EngineState struct {
	Ledger *ledger.Ledger
	Cache  *aggregate.Cache
}

// Snapshot captures the current state as a persistable document.
func (s *EngineState) Snapshot(now time.Time) *Snapshot {
	return &Snapshot{
		Version:    snapshotSchemaVersion,
		SavedAt:    now,
		Ledger:     s.Ledger.Export(),
		Aggregates: s.Cache.Export(),
	}
}

// Restore loads a previously persisted snapshot into the state. A nil
// snapshot (first run, or an unreadable document) leaves the state empty.
func (s *EngineState) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.Ledger.Import(snap.Ledger)
	s.Cache.Import(snap.Aggregates)
}

// Persister stores and retrieves the snapshot document.
type Persister interface {
	// Load returns the persisted snapshot, or (nil, nil) when none exists
	// or the stored document is unreadable; startup never fails on state
	// recovery.
	Load(ctx context.Context) (*Snapshot, error)

	// Save durably replaces the previous snapshot with snap, atomically
	// with respect to process crash.
	Save(ctx context.Context, snap *Snapshot) error
}
