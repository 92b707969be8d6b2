package state

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore persists the snapshot as a JSON document on local disk.
// Saves are crash-atomic: the new document is written in full to a
// sidecar file and renamed over the previous one.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed persister at path. The parent
// directory is created if needed.
func NewFileStore(path string) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	return &FileStore{path: path}, nil
}

// Load reads the snapshot from disk. A missing file is a normal first
// run; a corrupt file is logged and treated as empty state rather than
// failing startup.
func (f *FileStore) Load(_ context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot %s: %w", f.path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("[FileStore] Snapshot unreadable, starting from empty state",
			"path", f.path,
			"error", err,
		)
		return nil, nil
	}
	return &snap, nil
}

// Save atomically replaces the snapshot on disk.
func (f *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
