package bot

import (
	"sync"
	"time"

	"jordanella.com/auto-shake-go/internal/input"
)

// TickMetrics tracks loop statistics
type TickMetrics struct {
	mu sync.RWMutex

	// Tick counts
	Ticks     int64
	SlowTicks int64
	LastTick  time.Time

	// Timing statistics
	TotalDuration   time.Duration
	MinDuration     time.Duration
	MaxDuration     time.Duration
	AverageDuration time.Duration

	// Command counts
	Presses  int64
	Holds    int64
	Releases int64

	// Error tracking
	CaptureErrors            int64
	InputErrors              int64
	ConsecutiveCaptureErrors int64
	LastError                error
	LastErrorTime            time.Time
}

// NewTickMetrics creates a new metrics tracker
func NewTickMetrics() *TickMetrics {
	return &TickMetrics{
		MinDuration: time.Duration(1<<63 - 1), // Max duration initially
	}
}

// RecordTick records one active tick. captureErr is nil on a good capture.
func (m *TickMetrics) RecordTick(duration time.Duration, slow bool, captureErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Ticks++
	m.LastTick = time.Now()
	if slow {
		m.SlowTicks++
	}

	m.TotalDuration += duration
	if duration < m.MinDuration {
		m.MinDuration = duration
	}
	if duration > m.MaxDuration {
		m.MaxDuration = duration
	}
	m.AverageDuration = m.TotalDuration / time.Duration(m.Ticks)

	if captureErr == nil {
		m.ConsecutiveCaptureErrors = 0
	} else {
		m.CaptureErrors++
		m.ConsecutiveCaptureErrors++
		m.LastError = captureErr
		m.LastErrorTime = time.Now()
	}
}

// RecordCommand records an emitted command and its result
func (m *TickMetrics) RecordCommand(cmd input.Command, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.InputErrors++
		m.LastError = err
		m.LastErrorTime = time.Now()
		return
	}

	switch cmd.Kind {
	case input.Press:
		m.Presses++
	case input.Hold:
		m.Holds++
	case input.Release:
		m.Releases++
	}
}

// IsHealthy returns false once capture has failed threshold times in a row
func (m *TickMetrics) IsHealthy(threshold int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if threshold <= 0 {
		threshold = 3 // Default threshold
	}

	return m.ConsecutiveCaptureErrors < threshold
}

// GetStats returns a snapshot of current metrics (thread-safe)
func (m *TickMetrics) GetStats() TickStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := TickStats{
		Ticks:                    m.Ticks,
		SlowTicks:                m.SlowTicks,
		LastTick:                 m.LastTick,
		AverageDuration:          m.AverageDuration,
		MaxDuration:              m.MaxDuration,
		Presses:                  m.Presses,
		Holds:                    m.Holds,
		Releases:                 m.Releases,
		CaptureErrors:            m.CaptureErrors,
		InputErrors:              m.InputErrors,
		ConsecutiveCaptureErrors: m.ConsecutiveCaptureErrors,
		LastError:                m.LastError,
		LastErrorTime:            m.LastErrorTime,
	}
	if m.Ticks > 0 {
		stats.MinDuration = m.MinDuration
	}
	return stats
}

// TickStats is a snapshot of loop metrics (immutable)
type TickStats struct {
	Ticks                    int64
	SlowTicks                int64
	LastTick                 time.Time
	AverageDuration          time.Duration
	MinDuration              time.Duration
	MaxDuration              time.Duration
	Presses                  int64
	Holds                    int64
	Releases                 int64
	CaptureErrors            int64
	InputErrors              int64
	ConsecutiveCaptureErrors int64
	LastError                error
	LastErrorTime            time.Time
}

// Actions returns the number of press and hold commands emitted
func (s TickStats) Actions() int64 {
	return s.Presses + s.Holds
}
