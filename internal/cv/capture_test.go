package cv

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// fakeScreen is an in-memory desktop made of one or more displays
type fakeScreen struct {
	displays []image.Rectangle
	fill     color.RGBA
	err      error
	grabs    []image.Rectangle
}

func (f *fakeScreen) NumDisplays() int {
	return len(f.displays)
}

func (f *fakeScreen) DisplayBounds(index int) image.Rectangle {
	return f.displays[index]
}

func (f *fakeScreen) CaptureRect(rect image.Rectangle) (*image.RGBA, error) {
	f.grabs = append(f.grabs, rect)
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = f.fill.R
		img.Pix[i+1] = f.fill.G
		img.Pix[i+2] = f.fill.B
		img.Pix[i+3] = 255
	}
	return img, nil
}

func TestCaptureExactDimensions(t *testing.T) {
	screen := &fakeScreen{displays: []image.Rectangle{image.Rect(0, 0, 1920, 1080)}}
	sampler := NewScreenSamplerWith(screen)

	regions := []Region{
		NewRegion(0, 0, 100, 100),
		NewRegion(122, 40, 1162, 586),
		NewRegion(1919, 1079, 1, 1),
		NewRegion(0, 0, 1920, 1080),
	}

	for _, region := range regions {
		t.Run(region.String(), func(t *testing.T) {
			sample, err := sampler.Capture(region)
			if err != nil {
				t.Fatalf("Capture() failed: %v", err)
			}
			if sample.Width() != region.Width || sample.Height() != region.Height {
				t.Errorf("expected %dx%d, got %dx%d", region.Width, region.Height, sample.Width(), sample.Height())
			}
			if sample.Region != region {
				t.Errorf("expected captured region %v, got %v", region, sample.Region)
			}
		})
	}
}

func TestCaptureClipsToVirtualScreen(t *testing.T) {
	screen := &fakeScreen{displays: []image.Rectangle{
		image.Rect(0, 0, 1920, 1080),
		image.Rect(1920, 0, 3840, 1080),
	}}
	sampler := NewScreenSamplerWith(screen)

	bounds, err := sampler.ScreenBounds()
	if err != nil {
		t.Fatalf("ScreenBounds() failed: %v", err)
	}
	if bounds != image.Rect(0, 0, 3840, 1080) {
		t.Errorf("unexpected virtual bounds %v", bounds)
	}

	sample, err := sampler.Capture(NewRegion(3800, 1000, 100, 100))
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}
	if sample.Width() != 40 || sample.Height() != 80 {
		t.Errorf("expected clipped 40x80, got %dx%d", sample.Width(), sample.Height())
	}
	if got := screen.grabs[len(screen.grabs)-1]; got != image.Rect(3800, 1000, 3840, 1080) {
		t.Errorf("grabbed wrong rect %v", got)
	}
}

func TestCaptureOffscreenIsEmptyNotError(t *testing.T) {
	screen := &fakeScreen{displays: []image.Rectangle{image.Rect(0, 0, 800, 600)}}
	sampler := NewScreenSamplerWith(screen)

	sample, err := sampler.Capture(NewRegion(5000, 5000, 50, 50))
	if err != nil {
		t.Fatalf("expected no error for off-screen region, got %v", err)
	}
	if !sample.Empty() {
		t.Errorf("expected empty sample, got %dx%d", sample.Width(), sample.Height())
	}
	if len(screen.grabs) != 0 {
		t.Errorf("expected no grab for empty region")
	}

	sig := Extract(sample, DefaultThresholds())
	if sig != NeutralSignal() {
		t.Errorf("expected neutral signal, got %+v", sig)
	}
}

func TestCaptureErrors(t *testing.T) {
	t.Run("no display", func(t *testing.T) {
		sampler := NewScreenSamplerWith(&fakeScreen{})
		_, err := sampler.Capture(NewRegion(0, 0, 10, 10))

		var capErr *CaptureError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CaptureError, got %v", err)
		}
		if !errors.Is(err, ErrNoDisplay) {
			t.Errorf("expected ErrNoDisplay, got %v", err)
		}
	})

	t.Run("grab failure", func(t *testing.T) {
		denied := errors.New("permission denied")
		screen := &fakeScreen{
			displays: []image.Rectangle{image.Rect(0, 0, 100, 100)},
			err:      denied,
		}
		_, err := NewScreenSamplerWith(screen).Capture(NewRegion(0, 0, 10, 10))

		var capErr *CaptureError
		if !errors.As(err, &capErr) {
			t.Fatalf("expected CaptureError, got %v", err)
		}
		if !errors.Is(err, denied) {
			t.Errorf("expected wrapped cause, got %v", err)
		}
	})
}

func TestNewSamplerBackends(t *testing.T) {
	if _, err := NewSampler("screenshot"); err != nil {
		t.Errorf("screenshot backend: %v", err)
	}
	if _, err := NewSampler(""); err != nil {
		t.Errorf("default backend: %v", err)
	}
	if _, err := NewSampler("vnc"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRegionClip(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	tests := []struct {
		name   string
		region Region
		want   Region
	}{
		{"inside", NewRegion(10, 10, 20, 20), NewRegion(10, 10, 20, 20)},
		{"negative origin", NewRegion(-10, -5, 30, 30), NewRegion(0, 0, 20, 25)},
		{"overflow", NewRegion(90, 95, 30, 30), NewRegion(90, 95, 10, 5)},
		{"outside", NewRegion(200, 200, 10, 10), Region{X: 200, Y: 200}},
		{"zero size", NewRegion(5, 5, 0, 10), Region{X: 5, Y: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.region.Clip(bounds)
			if got != tt.want {
				t.Errorf("Clip() = %v, want %v", got, tt.want)
			}
			if got.Valid() != (tt.want.Width > 0 && tt.want.Height > 0) {
				t.Errorf("Clip() validity = %v for %v", got.Valid(), got)
			}
		})
	}
}
