// Package postgres provides a PostgreSQL-backed snapshot persister for
// deployments where local disk is ephemeral. The whole snapshot document
// lives in a single row, replaced in one statement so a crash mid-save
// never leaves a torn document.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Register postgres driver

	"github.com/playtrack-dev/playtrack/internal/state"
)

const connectPingTimeout = 5 * time.Second

const (
	querySaveSnapshot = `
		INSERT INTO engine_snapshots (id, doc, saved_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, saved_at = EXCLUDED.saved_at
	`
	queryLoadSnapshot = `
		SELECT doc FROM engine_snapshots WHERE id = 1
	`
)

// Adapter implements state.Persister on PostgreSQL.
type Adapter struct {
	db *sql.DB
}

// NewAdapter wraps an open database handle. Schema must be initialized
// separately via migrations.
func NewAdapter(db *sql.DB) *Adapter {
	return &Adapter{db: db}
}

// Open connects to PostgreSQL, applies pool settings, and verifies
// connectivity.
func Open(dsn string, maxOpenConns, maxIdleConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres database: %w", err)
	}

	slog.Info("[Postgres] Connection pool configured",
		"max_open_conns", maxOpenConns,
		"max_idle_conns", maxIdleConns)

	return db, nil
}

// Load returns the persisted snapshot. No row means first run; an
// unreadable document is logged and treated as empty state.
func (a *Adapter) Load(ctx context.Context) (*state.Snapshot, error) {
	var doc []byte
	err := a.db.QueryRowContext(ctx, queryLoadSnapshot).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot row: %w", err)
	}

	var snap state.Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		slog.Warn("[Postgres] Snapshot unreadable, starting from empty state", "error", err)
		return nil, nil
	}
	return &snap, nil
}

// Save upserts the snapshot row. The single-statement upsert is atomic;
// readers see either the old document or the new one, never a mixture.
func (a *Adapter) Save(ctx context.Context, snap *state.Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, querySaveSnapshot, doc, snap.SavedAt); err != nil {
		return fmt.Errorf("save snapshot row: %w", err)
	}
	return nil
}
