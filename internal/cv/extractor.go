package cv

import (
	"bytes"
	"image"
)

// Extractor wraps Extract with an optional unchanged-frame shortcut.
// When SkipUnchanged is set and a sample's pixels and the thresholds match
// the previous call, the previous Signal is returned without rescanning.
// Because Extract is pure the result is identical either way.
// Not safe for concurrent use.
type Extractor struct {
	SkipUnchanged bool

	prevPix    []byte
	prevRect   image.Rectangle
	prevStride int
	prevTh     Thresholds
	prevSignal Signal
	hasPrev    bool

	skipped uint64
}

// NewExtractor creates an extractor
func NewExtractor(skipUnchanged bool) *Extractor {
	return &Extractor{SkipUnchanged: skipUnchanged}
}

// Extract returns the signal for sample
func (e *Extractor) Extract(sample *Sample, th Thresholds) Signal {
	if !e.SkipUnchanged || sample == nil || sample.Empty() {
		e.hasPrev = false
		return Extract(sample, th)
	}

	img := sample.Image
	if e.hasPrev &&
		e.prevTh == th &&
		e.prevRect == img.Rect &&
		e.prevStride == img.Stride &&
		bytes.Equal(e.prevPix, img.Pix) {
		e.skipped++
		return e.prevSignal
	}

	sig := Extract(sample, th)

	e.prevPix = append(e.prevPix[:0], img.Pix...)
	e.prevRect = img.Rect
	e.prevStride = img.Stride
	e.prevTh = th
	e.prevSignal = sig
	e.hasPrev = true

	return sig
}

// Reset forgets the previous frame
func (e *Extractor) Reset() {
	e.hasPrev = false
	e.prevPix = e.prevPix[:0]
}

// Skipped returns how many frames were served from the previous result
func (e *Extractor) Skipped() uint64 {
	return e.skipped
}
