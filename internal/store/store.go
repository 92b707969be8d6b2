// Package store talks to the external key-value session store. It exposes
// the raw page-level client contract plus the two leaf components built on
// it: the key enumerator (paginated prefix listing) and the record fetcher
// (point lookups), both with bounded retry.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Client.GetEntry when the store has no entry
// under the key. It is a terminal, non-retried outcome.
var ErrNotFound = errors.New("entry not found")

// Page is one page of a prefix listing.
type Page struct {
	Keys       []string
	NextCursor string // empty when this is the last page
}

// Client is the transport-level contract against the external store.
// Implementations return ErrNotFound for missing entries and plain errors
// for transport failures; retry policy is layered on top, not inside.
type Client interface {
	// ListKeys returns one page of entry keys matching prefix, starting at
	// cursor ("" for the first page).
	ListKeys(ctx context.Context, prefix, cursor string) (Page, error)

	// GetEntry returns the raw entry document stored under key.
	GetEntry(ctx context.Context, key string) ([]byte, error)
}
