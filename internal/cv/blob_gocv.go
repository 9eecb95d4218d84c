//go:build gocv

package cv

import (
	"image"

	"gocv.io/x/gocv"
)

// findBlob builds a full-resolution match mask and returns the bounding box of
// the largest outer contour that meets the minimum blob size, or an empty
// rectangle. The sampled cells are not needed here.
func findBlob(img *image.RGBA, match func(r, g, b uint8) bool, _ []bool, _, _, _ int, th Thresholds) image.Rectangle {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	mask := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < width; x++ {
			i := row + x*4
			if match(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				mask[y*width+x] = 255
			}
		}
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, mask)
	if err != nil {
		return image.Rectangle{}
	}
	defer mat.Close()

	contours := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var best image.Rectangle
	for i := 0; i < contours.Size(); i++ {
		rect := gocv.BoundingRect(contours.At(i))
		if rect.Dx() < th.MinBlobWidth || rect.Dy() < th.MinBlobHeight {
			continue
		}
		if rect.Dx()*rect.Dy() > best.Dx()*best.Dy() {
			best = rect
		}
	}
	return best
}
