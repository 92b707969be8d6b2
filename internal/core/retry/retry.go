// Package retry provides the single retry-with-backoff combinator used by
// every external-store call path. Keeping one parametrized implementation
// avoids ad hoc inline retry loops with subtly different semantics.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes a bounded retry budget: at most MaxAttempts total
// attempts with exponential delay starting at InitialDelay.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// Do invokes op until it succeeds, returns a permanent error, the policy's
// attempt budget is exhausted, or ctx is cancelled. The last error is
// returned on failure.
func (p Policy) Do(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	if p.InitialDelay > 0 {
		eb.InitialInterval = p.InitialDelay
	}
	eb.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithMaxRetries(backoff.WithContext(eb, ctx), uint64(attempts-1))
	return backoff.Retry(op, bo)
}

// Permanent marks err as terminal so Do stops retrying immediately.
// Absent-record outcomes use this: "not found" is a valid state, not a
// transient transport failure.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
