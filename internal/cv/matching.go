package cv

import (
	"image"
	"math"
)

// Extract reduces a sample to a Signal. It is a pure function of its
// inputs and never writes to the sample.
func Extract(sample *Sample, th Thresholds) Signal {
	if sample == nil || sample.Empty() {
		return NeutralSignal()
	}
	return extractRGBA(sample.Image, th)
}

func extractRGBA(img *image.RGBA, th Thresholds) Signal {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	step := th.SampleStep
	if step < 1 {
		step = 1
	}

	sig := NeutralSignal()
	match := newColorMatcher(th)

	// with a blob gate, matching cells are kept for connected-component labelling
	gated := th.MinBlobWidth > 0 || th.MinBlobHeight > 0
	gw, gh := (width+step-1)/step, (height+step-1)/step
	var cells []bool
	if gated {
		cells = make([]bool, gw*gh)
	}

	var sumX, sumY float64
	minX, minY := width, height
	maxX, maxY := -1, -1

	for y := 0; y < height; y += step {
		row := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < width; x += step {
			sig.Sampled++

			idx := row + x*4
			if !match(img.Pix[idx], img.Pix[idx+1], img.Pix[idx+2]) {
				continue
			}

			sig.Matched++
			if gated {
				cells[(y/step)*gw+x/step] = true
			}
			sumX += float64(x)
			sumY += float64(y)
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if sig.Sampled == 0 || sig.Matched == 0 {
		return sig
	}

	sig.Coverage = float64(sig.Matched) / float64(sig.Sampled)
	sig.Bounds = image.Rect(minX, minY, maxX+1, maxY+1)

	cx := sumX / float64(sig.Matched)
	cy := sumY / float64(sig.Matched)
	sig.OffsetX = (cx+0.5)/(float64(width)/2) - 1
	sig.OffsetY = (cy+0.5)/(float64(height)/2) - 1

	sig.MarkerFound = sig.Coverage >= th.MinCoverage
	if gated {
		sig.Blob = findBlob(img, match, cells, gw, gh, step, th)
		sig.MarkerFound = sig.MarkerFound && !sig.Blob.Empty()
	}

	return sig
}

// newColorMatcher returns a predicate for the configured target and metric.
// A negative or NaN tolerance never matches.
func newColorMatcher(th Thresholds) func(r, g, b uint8) bool {
	tol := th.Tolerance
	if tol < 0 || math.IsNaN(tol) {
		return func(uint8, uint8, uint8) bool { return false }
	}

	tr, tg, tb := int(th.Target.R), int(th.Target.G), int(th.Target.B)

	switch th.Metric {
	case MetricChannel:
		return func(r, g, b uint8) bool {
			d := abs(int(r) - tr)
			if dg := abs(int(g) - tg); dg > d {
				d = dg
			}
			if db := abs(int(b) - tb); db > d {
				d = db
			}
			return float64(d) <= tol
		}
	case MetricAverage:
		return func(r, g, b uint8) bool {
			return colorDistance(r, g, b, th.Target.R, th.Target.G, th.Target.B) <= tol
		}
	default:
		limit := tol * tol
		return func(r, g, b uint8) bool {
			dr := int(r) - tr
			dg := int(g) - tg
			db := int(b) - tb
			return float64(dr*dr+dg*dg+db*db) <= limit
		}
	}
}

// colorDistance is the mean absolute channel difference
func colorDistance(r1, g1, b1, r2, g2, b2 uint8) float64 {
	dr := abs(int(r1) - int(r2))
	dg := abs(int(g1) - int(g2))
	db := abs(int(b1) - int(b2))
	return float64(dr+dg+db) / 3
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
