package bot

import (
	"sync"
	"sync/atomic"
	"time"

	"jordanella.com/auto-shake-go/internal/cv"
	"jordanella.com/auto-shake-go/internal/policy"
)

// Settings is everything the driver reads each tick. It holds only values,
// so a copy never aliases the shared instance.
type Settings struct {
	Region     cv.Region
	Thresholds cv.Thresholds
	Policy     policy.Config

	// Interval is the target tick period
	Interval time.Duration

	// SkipUnchanged reuses the previous signal for identical frames
	SkipUnchanged bool
}

// DefaultSettings returns the capture box and detection rule of the
// original shake helper
func DefaultSettings() Settings {
	return Settings{
		Region:     cv.NewRegion(122, 40, 1162, 586),
		Thresholds: cv.DefaultThresholds(),
		Policy:     policy.DefaultConfig(),
		Interval:   25 * time.Millisecond,
	}
}

// Shared is the boundary between the shell and the driver. The active flag
// is lock-free; settings sit behind a mutex that is only held to copy.
type Shared struct {
	active atomic.Bool

	mu       sync.Mutex
	settings Settings
	version  uint64
}

// NewShared creates shared state with the given settings, inactive
func NewShared(settings Settings) *Shared {
	return &Shared{settings: settings}
}

// Active reports whether the loop should run
func (s *Shared) Active() bool {
	return s.active.Load()
}

// SetActive sets the active flag and returns its previous value
func (s *Shared) SetActive(active bool) bool {
	return s.active.Swap(active)
}

// Toggle flips the active flag and returns the new value
func (s *Shared) Toggle() bool {
	for {
		old := s.active.Load()
		if s.active.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Snapshot returns a copy of the current settings
func (s *Shared) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Version increments on every change to the settings
func (s *Shared) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Update applies fn to the settings under the lock. fn must not block.
func (s *Shared) Update(fn func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.settings)
	s.version++
}

// Replace swaps in a whole new settings value
func (s *Shared) Replace(settings Settings) {
	s.Update(func(cur *Settings) { *cur = settings })
}

// SetRegion changes the capture region
func (s *Shared) SetRegion(region cv.Region) {
	s.Update(func(cur *Settings) { cur.Region = region })
}
