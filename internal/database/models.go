package database

import (
	"time"
)

// Session is one active period of the loop
type Session struct {
	ID        int64      `db:"id"`
	Region    string     `db:"region"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	Ticks     int64      `db:"ticks"`
	Actions   int64      `db:"actions"`
}

// Duration returns how long the session ran, up to now if still open
func (s *Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// Open reports whether the session has not been ended yet
func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// ActionRecord is one command sent to the input device
type ActionRecord struct {
	ID           int64     `db:"id"`
	SessionID    int64     `db:"session_id"`
	Kind         string    `db:"kind"`
	Button       string    `db:"button"`
	Phase        string    `db:"phase"`
	ErrorMessage *string   `db:"error_message"`
	OccurredAt   time.Time `db:"occurred_at"`
}

// Failed reports whether the input device rejected the command
func (a *ActionRecord) Failed() bool {
	return a.ErrorMessage != nil
}
