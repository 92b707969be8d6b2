// Package session holds the pure domain model: session records as the
// external store reports them, the composite keys that identify them, and
// the date arithmetic the aggregate layer is built on.
package session

import "time"

// Record is one join-to-leave interval for a principal on a given date,
// exactly as the external store reports it. LeaveTime is zero while the
// session is still open.
type Record struct {
	Principal string
	DateKey   string
	JoinTime  int64 // unix seconds
	LeaveTime int64 // unix seconds; 0 while open
}

// Completed reports whether a leave timestamp has been recorded.
// Open records must never be notified or counted as finished sessions.
func (r Record) Completed() bool {
	return r.LeaveTime > 0
}

// DurationMinutes returns the whole minutes between join and leave.
// It is defined only for completed records with LeaveTime after JoinTime;
// the second return value is false otherwise.
func (r Record) DurationMinutes() (int64, bool) {
	if !r.Completed() || r.LeaveTime <= r.JoinTime {
		return 0, false
	}
	return (r.LeaveTime - r.JoinTime) / 60, true
}

// Join returns the join timestamp as wall-clock time in UTC.
func (r Record) Join() time.Time {
	return time.Unix(r.JoinTime, 0).UTC()
}

// Leave returns the leave timestamp as wall-clock time in UTC.
// Only meaningful when Completed.
func (r Record) Leave() time.Time {
	return time.Unix(r.LeaveTime, 0).UTC()
}
