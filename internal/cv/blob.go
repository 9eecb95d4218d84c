//go:build !gocv

package cv

import (
	"image"
)

// findBlob labels 8-connected matching cells and returns the box of the
// largest component that meets the minimum blob size, or an empty rectangle.
// cells is consumed.
func findBlob(img *image.RGBA, match func(r, g, b uint8) bool, cells []bool, gw, gh, step int, th Thresholds) image.Rectangle {
	var best image.Rectangle
	stack := make([]int, 0, 64)

	for start, set := range cells {
		if !set {
			continue
		}
		cells[start] = false
		stack = append(stack[:0], start)
		minX, minY := gw, gh
		maxX, maxY := -1, -1

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cx, cy := i%gw, i/gw
			minX, maxX = min(minX, cx), max(maxX, cx)
			minY, maxY = min(minY, cy), max(maxY, cy)

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := cx+dx, cy+dy
					if nx < 0 || ny < 0 || nx >= gw || ny >= gh {
						continue
					}
					if n := ny*gw + nx; cells[n] {
						cells[n] = false
						stack = append(stack, n)
					}
				}
			}
		}

		box := image.Rect(minX*step, minY*step, maxX*step+1, maxY*step+1)
		box = refineBlob(img, match, box, step)
		if box.Dx() < th.MinBlobWidth || box.Dy() < th.MinBlobHeight {
			continue
		}
		if box.Dx()*box.Dy() > best.Dx()*best.Dy() {
			best = box
		}
	}
	return best
}

// refineBlob grows a box found on the sampled grid into the up to step-1
// unsampled pixels on each side, so the measured size does not depend on
// how the blob lines up with the grid.
func refineBlob(img *image.RGBA, match func(r, g, b uint8) bool, box image.Rectangle, step int) image.Rectangle {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	at := func(x, y int) bool {
		i := img.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
		return match(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	column := func(x int) bool {
		for y := box.Min.Y; y < box.Max.Y; y++ {
			if at(x, y) {
				return true
			}
		}
		return false
	}
	row := func(y int) bool {
		for x := box.Min.X; x < box.Max.X; x++ {
			if at(x, y) {
				return true
			}
		}
		return false
	}

	for i := 1; i < step && box.Min.X > 0 && column(box.Min.X-1); i++ {
		box.Min.X--
	}
	for i := 1; i < step && box.Max.X < width && column(box.Max.X); i++ {
		box.Max.X++
	}
	for i := 1; i < step && box.Min.Y > 0 && row(box.Min.Y-1); i++ {
		box.Min.Y--
	}
	for i := 1; i < step && box.Max.Y < height && row(box.Max.Y); i++ {
		box.Max.Y++
	}
	return box
}
