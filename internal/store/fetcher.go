package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/playtrack-dev/playtrack/internal/core/retry"
	"github.com/playtrack-dev/playtrack/internal/core/session"
)

// recordDoc is the wire shape of one session entry, as the game server
// writes it: unix-second timestamps, leaveTime absent while the session
// is open.
type recordDoc struct {
	JoinTime  int64 `json:"joinTime"`
	LeaveTime int64 `json:"leaveTime"`
}

// Fetcher performs point lookups of session records with bounded retry.
// Only transport failures are retried; "not found" is a terminal state.
type Fetcher struct {
	client Client
	policy retry.Policy
}

// NewFetcher creates a record fetcher.
func NewFetcher(client Client, policy retry.Policy) *Fetcher {
	return &Fetcher{client: client, policy: policy}
}

// Get fetches the record under key. It returns ErrNotFound when the store
// has no entry, and the underlying transport error when retries are
// exhausted; callers treat both as "absent this cycle", but only the
// latter degrades aggregate computations.
func (f *Fetcher) Get(ctx context.Context, key session.Key) (session.Record, error) {
	var body []byte
	err := f.policy.Do(ctx, func() error {
		var getErr error
		body, getErr = f.client.GetEntry(ctx, key.Raw)
		if errors.Is(getErr, ErrNotFound) {
			return retry.Permanent(getErr)
		}
		return getErr
	})
	if err != nil {
		return session.Record{}, err
	}

	var doc recordDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return session.Record{}, fmt.Errorf("decode record %q: %w", key.Raw, err)
	}

	return session.Record{
		Principal: key.Principal,
		DateKey:   key.DateKey,
		JoinTime:  doc.JoinTime,
		LeaveTime: doc.LeaveTime,
	}, nil
}
