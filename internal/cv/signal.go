package cv

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// SignalVersion identifies the layout of Signal readings
const SignalVersion uint8 = 1

// Signal holds the scalar readings extracted from one sample
type Signal struct {
	Version     uint8
	MarkerFound bool

	// Centroid of matching pixels relative to the sample centre, in [-1, 1]
	OffsetX float64
	OffsetY float64

	// Coverage is the fraction of sampled pixels that matched (fill ratio)
	Coverage float64

	Matched int
	Sampled int

	// Bounds of all matching pixels in sample coordinates
	Bounds image.Rectangle

	// Blob is the largest connected group of matching pixels that meets the
	// minimum blob size. Empty when no blob gate is set or none qualifies.
	Blob image.Rectangle
}

// NeutralSignal is the reading for an empty or unmatched sample
func NeutralSignal() Signal {
	return Signal{Version: SignalVersion}
}

func (s Signal) String() string {
	if !s.MarkerFound {
		return fmt.Sprintf("no marker (coverage=%.3f)", s.Coverage)
	}
	box := s.Bounds
	if !s.Blob.Empty() {
		box = s.Blob
	}
	return fmt.Sprintf("marker offset=(%.2f,%.2f) coverage=%.3f box=%dx%d",
		s.OffsetX, s.OffsetY, s.Coverage, box.Dx(), box.Dy())
}

// Metric selects how colour distance is measured
type Metric int

const (
	// MetricEuclidean compares the RGB vector length of the difference
	MetricEuclidean Metric = iota
	// MetricChannel compares the largest single-channel difference
	MetricChannel
	// MetricAverage compares the mean absolute channel difference
	MetricAverage
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricChannel:
		return "channel"
	case MetricAverage:
		return "average"
	default:
		return "unknown"
	}
}

// ParseMetric parses a metric name. Empty means euclidean.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean":
		return MetricEuclidean, nil
	case "channel", "chebyshev":
		return MetricChannel, nil
	case "average", "avg":
		return MetricAverage, nil
	default:
		return MetricEuclidean, fmt.Errorf("unknown color metric %q", s)
	}
}

// Thresholds configure marker detection
type Thresholds struct {
	Target    color.RGBA
	Tolerance float64
	Metric    Metric

	// SampleStep visits every Nth pixel on both axes; values below 1 mean 1
	SampleStep int

	// MinCoverage is the fill ratio required before a marker counts as found
	MinCoverage float64

	// MinBlobWidth and MinBlobHeight require one connected group of matching
	// pixels at least this large. Zero disables the gate.
	MinBlobWidth  int
	MinBlobHeight int
}

// DefaultThresholds matches near-white pixels over a blob larger than 40x40,
// the shake prompt the tool was written for
func DefaultThresholds() Thresholds {
	return Thresholds{
		Target:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Tolerance:     26,
		Metric:        MetricEuclidean,
		SampleStep:    2,
		MinBlobWidth:  41,
		MinBlobHeight: 41,
	}
}

// ParseHexColor parses "#RRGGBB" or "RRGGBB"
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// FormatHexColor renders c as "#RRGGBB"
func FormatHexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}
