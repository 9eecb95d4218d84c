package cv

import (
	"fmt"
	"image"
)

// Region is a capture rectangle in virtual screen coordinates
type Region struct {
	X, Y          int
	Width, Height int
}

// NewRegion creates a new region
func NewRegion(x, y, width, height int) Region {
	return Region{X: x, Y: y, Width: width, Height: height}
}

// RegionFromRectangle converts an image.Rectangle to a Region
func RegionFromRectangle(r image.Rectangle) Region {
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Valid reports whether the region has positive dimensions
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Rectangle converts the region to an image.Rectangle
func (r Region) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Clip intersects the region with bounds. The result may be empty.
func (r Region) Clip(bounds image.Rectangle) Region {
	if !r.Valid() {
		return Region{X: r.X, Y: r.Y}
	}
	clipped := r.Rectangle().Intersect(bounds)
	if clipped.Empty() {
		return Region{X: r.X, Y: r.Y}
	}
	return RegionFromRectangle(clipped)
}

// Contains checks if a screen point is within the region
func (r Region) Contains(p image.Point) bool {
	return p.In(r.Rectangle())
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}
