package cv

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/kbinani/screenshot"
)

// ErrNoDisplay is returned when no active display can be captured
var ErrNoDisplay = errors.New("no active display")

// CaptureError reports that the screen capture API itself is unavailable
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Sample is one immutable grab of a screen region
type Sample struct {
	Image      *image.RGBA
	Requested  Region // region asked for by the caller
	Region     Region // region actually captured after clipping
	CapturedAt time.Time
}

// Width returns the captured pixel width
func (s *Sample) Width() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

// Height returns the captured pixel height
func (s *Sample) Height() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Empty reports whether the sample holds no pixels
func (s *Sample) Empty() bool {
	return s.Width() == 0 || s.Height() == 0
}

// Sampler grabs pixel data for a screen region
type Sampler interface {
	Capture(region Region) (*Sample, error)
	ScreenBounds() (image.Rectangle, error)
}

// Screen is the raw display API a ScreenSampler reads from
type Screen interface {
	NumDisplays() int
	DisplayBounds(index int) image.Rectangle
	CaptureRect(rect image.Rectangle) (*image.RGBA, error)
}

// Backend names accepted by NewSampler
const (
	BackendScreenshot = "screenshot"
	BackendGDI        = "gdi"
)

// NewSampler creates a sampler for the named backend
func NewSampler(backend string) (Sampler, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendScreenshot:
		return NewScreenSampler(), nil
	case BackendGDI:
		return NewGDISampler()
	default:
		return nil, fmt.Errorf("unknown capture backend %q", backend)
	}
}

// ScreenSampler captures from the virtual desktop through a Screen
type ScreenSampler struct {
	screen Screen
	now    func() time.Time
}

// NewScreenSampler creates a sampler backed by the system display API
func NewScreenSampler() *ScreenSampler {
	return NewScreenSamplerWith(systemScreen{})
}

// NewScreenSamplerWith creates a sampler reading from the given screen
func NewScreenSamplerWith(screen Screen) *ScreenSampler {
	return &ScreenSampler{
		screen: screen,
		now:    time.Now,
	}
}

// ScreenBounds returns the union of all active display bounds
func (s *ScreenSampler) ScreenBounds() (image.Rectangle, error) {
	n := s.screen.NumDisplays()
	if n <= 0 {
		return image.Rectangle{}, &CaptureError{Op: "bounds", Err: ErrNoDisplay}
	}

	bounds := s.screen.DisplayBounds(0)
	for i := 1; i < n; i++ {
		bounds = bounds.Union(s.screen.DisplayBounds(i))
	}
	return bounds, nil
}

// Capture grabs the region, clipping it to the virtual screen first.
// A region that clips to nothing yields an empty sample, not an error.
func (s *ScreenSampler) Capture(region Region) (*Sample, error) {
	bounds, err := s.ScreenBounds()
	if err != nil {
		return nil, err
	}

	clipped := region.Clip(bounds)
	sample := &Sample{
		Requested:  region,
		Region:     clipped,
		CapturedAt: s.now(),
	}

	if !clipped.Valid() {
		sample.Image = image.NewRGBA(image.Rectangle{})
		return sample, nil
	}

	img, err := s.screen.CaptureRect(clipped.Rectangle())
	if err != nil {
		return nil, &CaptureError{Op: "grab " + clipped.String(), Err: err}
	}
	sample.Image = img
	return sample, nil
}

// systemScreen adapts kbinani/screenshot to the Screen interface
type systemScreen struct{}

func (systemScreen) NumDisplays() int {
	return screenshot.NumActiveDisplays()
}

func (systemScreen) DisplayBounds(index int) image.Rectangle {
	return screenshot.GetDisplayBounds(index)
}

func (systemScreen) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	return screenshot.CaptureRect(rect)
}
