// Package notify defines the outbound notification boundary and its
// Discord webhook implementation.
package notify

import (
	"context"
	"fmt"
	"time"
)

// Payload carries everything one completed-session notification needs.
// The engine fills it; rendering is the sink's concern.
type Payload struct {
	Principal      string
	JoinTime       time.Time
	LeaveTime      time.Time
	SessionMinutes int64

	// Rolling statistics across all principals.
	TodayMinutes        int64
	MonthMinutes        int64
	DailyAverageMinutes int64

	// Degraded is set when any aggregate fell back to a stale or zero
	// value because the store could not be fully read.
	Degraded bool

	// SentAt is the wall-clock time the notification was built.
	SentAt time.Time
}

// Sink delivers one notification. A non-nil error means the session
// stays un-notified and is retried next cycle; the receiving side must
// tolerate the occasional re-send this implies.
type Sink interface {
	Send(ctx context.Context, p Payload) error
}

// FormatMinutes renders a minute total as "Xh Ym", eliding the hours
// part when zero.
func FormatMinutes(total int64) string {
	hours := total / 60
	minutes := total % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
