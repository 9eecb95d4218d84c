package cv

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	red   = color.RGBA{R: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func solidSample(w, h int, c color.RGBA) *Sample {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return &Sample{Image: img, Region: NewRegion(0, 0, w, h), Requested: NewRegion(0, 0, w, h)}
}

func paint(s *Sample, rect image.Rectangle, c color.RGBA) {
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			s.Image.SetRGBA(x, y, c)
		}
	}
}

func exact(target color.RGBA) Thresholds {
	return Thresholds{Target: target, Tolerance: 0, SampleStep: 1}
}

func TestExtractSolidMatch(t *testing.T) {
	sig := Extract(solidSample(100, 100, red), exact(red))

	if !sig.MarkerFound {
		t.Fatalf("expected marker found, got %v", sig)
	}
	if sig.Coverage != 1 {
		t.Errorf("expected coverage 1, got %f", sig.Coverage)
	}
	if sig.Matched != 10000 || sig.Sampled != 10000 {
		t.Errorf("expected 10000/10000, got %d/%d", sig.Matched, sig.Sampled)
	}
	if math.Abs(sig.OffsetX) > 1e-9 || math.Abs(sig.OffsetY) > 1e-9 {
		t.Errorf("expected centred offset, got (%f, %f)", sig.OffsetX, sig.OffsetY)
	}
	if sig.Bounds != image.Rect(0, 0, 100, 100) {
		t.Errorf("unexpected bounds %v", sig.Bounds)
	}
	if sig.Version != SignalVersion {
		t.Errorf("expected version %d, got %d", SignalVersion, sig.Version)
	}
}

func TestExtractNoMatch(t *testing.T) {
	sig := Extract(solidSample(50, 50, white), exact(red))

	if sig.MarkerFound {
		t.Error("expected no marker")
	}
	if sig.Coverage != 0 || sig.Matched != 0 {
		t.Errorf("expected zero coverage, got %f (%d)", sig.Coverage, sig.Matched)
	}
	if sig.Sampled != 2500 {
		t.Errorf("expected 2500 sampled, got %d", sig.Sampled)
	}
}

func TestExtractEmptyAndNil(t *testing.T) {
	if sig := Extract(nil, DefaultThresholds()); sig != NeutralSignal() {
		t.Errorf("nil sample: got %+v", sig)
	}

	empty := &Sample{Image: image.NewRGBA(image.Rectangle{})}
	if sig := Extract(empty, DefaultThresholds()); sig != NeutralSignal() {
		t.Errorf("empty sample: got %+v", sig)
	}

	if sig := Extract(&Sample{}, DefaultThresholds()); sig != NeutralSignal() {
		t.Errorf("sample without image: got %+v", sig)
	}
}

func TestExtractInvalidTolerance(t *testing.T) {
	for _, tol := range []float64{-1, math.NaN(), math.Inf(-1)} {
		th := exact(red)
		th.Tolerance = tol

		sig := Extract(solidSample(20, 20, red), th)
		if sig.MarkerFound || sig.Matched != 0 {
			t.Errorf("tolerance %v: expected no match, got %v", tol, sig)
		}
	}
}

func TestExtractOffsetAndBounds(t *testing.T) {
	sample := solidSample(100, 100, black)
	// marker in the top-right quadrant
	paint(sample, image.Rect(50, 0, 100, 50), white)

	sig := Extract(sample, exact(white))

	if !sig.MarkerFound {
		t.Fatalf("expected marker found")
	}
	if sig.Bounds != image.Rect(50, 0, 100, 50) {
		t.Errorf("unexpected bounds %v", sig.Bounds)
	}
	if math.Abs(sig.Coverage-0.25) > 1e-9 {
		t.Errorf("expected coverage 0.25, got %f", sig.Coverage)
	}
	if math.Abs(sig.OffsetX-0.5) > 1e-9 || math.Abs(sig.OffsetY+0.5) > 1e-9 {
		t.Errorf("expected offset (0.5, -0.5), got (%f, %f)", sig.OffsetX, sig.OffsetY)
	}
}

func TestExtractMinimumBlob(t *testing.T) {
	sample := solidSample(200, 200, black)
	paint(sample, image.Rect(10, 10, 50, 50), white) // 40x40

	th := exact(white)
	th.MinBlobWidth = 41
	th.MinBlobHeight = 41

	if sig := Extract(sample, th); sig.MarkerFound {
		t.Errorf("40x40 blob should not pass a 41x41 gate: %v", sig)
	}

	paint(sample, image.Rect(10, 10, 51, 51), white) // 41x41
	if sig := Extract(sample, th); !sig.MarkerFound {
		t.Errorf("41x41 blob should pass: %v", sig)
	}
}

func TestExtractBlobMustBeConnected(t *testing.T) {
	sample := solidSample(200, 200, black)
	paint(sample, image.Rect(10, 10, 12, 12), white)
	paint(sample, image.Rect(100, 100, 102, 102), white)

	sig := Extract(sample, DefaultThresholds())
	if sig.MarkerFound {
		t.Errorf("scattered specks spanning a large box must not count: %v", sig)
	}
	if sig.Bounds.Dx() < 41 || sig.Bounds.Dy() < 41 {
		t.Errorf("overall bounds should still span both specks, got %v", sig.Bounds)
	}
	if !sig.Blob.Empty() {
		t.Errorf("no blob expected, got %v", sig.Blob)
	}

	paint(sample, image.Rect(120, 30, 161, 71), white) // 41x41
	sig = Extract(sample, DefaultThresholds())
	if !sig.MarkerFound {
		t.Fatalf("solid 41x41 box should be found: %v", sig)
	}
	if sig.Blob != image.Rect(120, 30, 161, 71) {
		t.Errorf("unexpected blob %v", sig.Blob)
	}
}

func TestExtractBlobIndependentOfGridAlignment(t *testing.T) {
	for _, size := range []int{40, 41} {
		for offset := 10; offset < 14; offset++ {
			sample := solidSample(120, 120, black)
			rect := image.Rect(offset, offset+1, offset+size, offset+1+size)
			paint(sample, rect, white)

			sig := Extract(sample, DefaultThresholds())
			if want := size >= 41; sig.MarkerFound != want {
				t.Errorf("%dx%d at offset %d: found=%v, want %v (%v)", size, size, offset, sig.MarkerFound, want, sig)
			}
			if size == 41 && sig.Blob != rect {
				t.Errorf("41x41 at offset %d: blob %v, want %v", offset, sig.Blob, rect)
			}
		}
	}
}

func TestExtractNoBlobGate(t *testing.T) {
	sample := solidSample(50, 50, black)
	paint(sample, image.Rect(1, 1, 2, 2), white)
	paint(sample, image.Rect(40, 40, 41, 41), white)

	sig := Extract(sample, exact(white))
	if !sig.MarkerFound {
		t.Errorf("without a blob gate any match counts: %v", sig)
	}
	if !sig.Blob.Empty() {
		t.Errorf("blob is only measured with a gate, got %v", sig.Blob)
	}
}

func TestExtractMinCoverage(t *testing.T) {
	sample := solidSample(10, 10, black)
	paint(sample, image.Rect(0, 0, 10, 1), white) // 10%

	th := exact(white)
	th.MinCoverage = 0.2
	if sig := Extract(sample, th); sig.MarkerFound {
		t.Errorf("expected coverage gate to reject, got %v", sig)
	}

	th.MinCoverage = 0.1
	if sig := Extract(sample, th); !sig.MarkerFound {
		t.Errorf("expected coverage gate to pass, got %v", sig)
	}
}

func TestExtractSampleStep(t *testing.T) {
	th := exact(red)
	th.SampleStep = 4

	sig := Extract(solidSample(100, 100, red), th)
	if sig.Sampled != 625 {
		t.Errorf("expected 625 sampled at step 4, got %d", sig.Sampled)
	}
	if sig.Coverage != 1 {
		t.Errorf("expected full coverage, got %f", sig.Coverage)
	}

	th.SampleStep = 0
	if sig := Extract(solidSample(10, 10, red), th); sig.Sampled != 100 {
		t.Errorf("step 0 should behave like 1, got %d sampled", sig.Sampled)
	}
}

func TestExtractMetrics(t *testing.T) {
	// (240, 250, 200) against white: euclidean ~57.2, channel 55, average 25
	px := color.RGBA{R: 240, G: 250, B: 200, A: 255}

	tests := []struct {
		metric    Metric
		tolerance float64
		want      bool
	}{
		{MetricEuclidean, 57, false},
		{MetricEuclidean, 58, true},
		{MetricChannel, 54, false},
		{MetricChannel, 55, true},
		{MetricAverage, 24, false},
		{MetricAverage, 25, true},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			th := Thresholds{Target: white, Tolerance: tt.tolerance, Metric: tt.metric, SampleStep: 1}
			sig := Extract(solidSample(4, 4, px), th)
			if sig.MarkerFound != tt.want {
				t.Errorf("tolerance %.0f: expected found=%v, got %v", tt.tolerance, tt.want, sig)
			}
		})
	}
}

func TestExtractDeterministicAndReadOnly(t *testing.T) {
	sample := solidSample(64, 48, black)
	paint(sample, image.Rect(5, 7, 30, 40), white)
	before := append([]byte(nil), sample.Image.Pix...)

	th := DefaultThresholds()
	th.MinBlobWidth, th.MinBlobHeight = 1, 1

	first := Extract(sample, th)
	for i := 0; i < 5; i++ {
		if got := Extract(sample, th); got != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
	if !bytes.Equal(before, sample.Image.Pix) {
		t.Error("Extract modified the sample pixels")
	}
}

func TestExtractSubImage(t *testing.T) {
	full := solidSample(100, 100, black)
	paint(full, image.Rect(60, 60, 80, 80), white)

	sub := full.Image.SubImage(image.Rect(50, 50, 100, 100)).(*image.RGBA)
	sig := Extract(&Sample{Image: sub}, exact(white))

	if sig.Bounds != image.Rect(10, 10, 30, 30) {
		t.Errorf("bounds should be relative to the sample, got %v", sig.Bounds)
	}
	if sig.Sampled != 2500 {
		t.Errorf("expected 2500 sampled, got %d", sig.Sampled)
	}
}

func TestExtractorSkipsUnchangedFrames(t *testing.T) {
	ex := NewExtractor(true)
	th := exact(red)

	sample := solidSample(20, 20, red)
	first := ex.Extract(sample, th)
	second := ex.Extract(solidSample(20, 20, red), th)

	if first != second {
		t.Errorf("cached signal differs: %+v vs %+v", first, second)
	}
	if ex.Skipped() != 1 {
		t.Errorf("expected 1 skipped frame, got %d", ex.Skipped())
	}

	changed := ex.Extract(solidSample(20, 20, white), th)
	if changed.MarkerFound {
		t.Error("changed frame must be rescanned")
	}
	if ex.Skipped() != 1 {
		t.Errorf("changed frame counted as skipped")
	}

	// threshold change invalidates the cache
	th2 := exact(white)
	if sig := ex.Extract(solidSample(20, 20, white), th2); !sig.MarkerFound {
		t.Error("threshold change must be rescanned")
	}

	ex.Reset()
	ex.Extract(solidSample(20, 20, white), th2)
	if ex.Skipped() != 1 {
		t.Errorf("reset should drop the cached frame, skipped=%d", ex.Skipped())
	}
}

func TestExtractorWithoutSkipMatchesPure(t *testing.T) {
	ex := NewExtractor(false)
	sample := solidSample(30, 30, red)
	th := exact(red)

	for i := 0; i < 3; i++ {
		if got, want := ex.Extract(sample, th), Extract(sample, th); got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	}
	if ex.Skipped() != 0 {
		t.Errorf("expected no skips, got %d", ex.Skipped())
	}
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#FF8000")
	if err != nil {
		t.Fatalf("ParseHexColor() failed: %v", err)
	}
	if c != (color.RGBA{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("unexpected color %v", c)
	}
	if got := FormatHexColor(c); got != "#FF8000" {
		t.Errorf("FormatHexColor() = %s", got)
	}

	for _, bad := range []string{"", "#FFF", "GGGGGG", "#1234567"} {
		if _, err := ParseHexColor(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseMetric(t *testing.T) {
	tests := map[string]Metric{
		"":          MetricEuclidean,
		"Euclidean": MetricEuclidean,
		"chebyshev": MetricChannel,
		"avg":       MetricAverage,
	}
	for in, want := range tests {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Errorf("ParseMetric(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseMetric("manhattan"); err == nil {
		t.Error("expected error for unknown metric")
	}
}
