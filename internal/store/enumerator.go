package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/playtrack-dev/playtrack/internal/core/retry"
	"github.com/playtrack-dev/playtrack/internal/core/session"
)

// Enumerator lists all record keys for one principal and date by walking
// the store's pagination cursors. Each page request carries the shared
// retry budget; a short delay between pages self-limits request rate
// against the store.
type Enumerator struct {
	client    Client
	policy    retry.Policy
	pageDelay time.Duration
	clock     clockwork.Clock
}

// NewEnumerator creates a key enumerator.
func NewEnumerator(client Client, policy retry.Policy, pageDelay time.Duration, clock clockwork.Clock) *Enumerator {
	return &Enumerator{
		client:    client,
		policy:    policy,
		pageDelay: pageDelay,
		clock:     clock,
	}
}

// List returns every key under the principal/date prefix in the order the
// store yields them. When a page request fails after exhausting retries,
// the keys accumulated so far are returned together with the error: a
// partial listing is preferable to blocking the whole cycle, and the
// caller flags the result as degraded.
func (e *Enumerator) List(ctx context.Context, principal, dateKey string) ([]session.Key, error) {
	prefix := session.KeyPrefix(principal, dateKey)

	var keys []session.Key
	cursor := ""
	for {
		var page Page
		err := e.policy.Do(ctx, func() error {
			var pageErr error
			page, pageErr = e.client.ListKeys(ctx, prefix, cursor)
			return pageErr
		})
		if err != nil {
			slog.Warn("[Enumerator] Listing degraded after exhausted retries",
				"prefix", prefix,
				"keys_so_far", len(keys),
				"error", err,
			)
			return keys, err
		}

		for _, raw := range page.Keys {
			key, parseErr := session.ParseKey(raw, principal, dateKey)
			if parseErr != nil {
				// The store matched a shorter principal name as a prefix.
				continue
			}
			keys = append(keys, key)
		}

		if page.NextCursor == "" {
			return keys, nil
		}
		cursor = page.NextCursor

		if e.pageDelay > 0 {
			e.clock.Sleep(e.pageDelay)
		}
	}
}
