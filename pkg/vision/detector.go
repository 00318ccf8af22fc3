// Package vision provides CPU-side analysis of scan images: locating the
// informative content region and measuring its exposure. It backs the
// offline enhancer; no model calls happen here.
package vision

import (
	"image"
	"math"
)

// ContentDetector locates scan content inside uninformative borders.
// X-ray film edges, ultrasound letterboxing and photographed report margins
// carry near-zero gradient activity and would dilute any contrast stretch
// applied to the whole frame.
type ContentDetector struct {
	config DetectionConfig
}

// DetectionConfig holds tuning for content detection
type DetectionConfig struct {
	ActivityThreshold float64 // minimum normalized row/column gradient counted as content
	MinContentRatio   float64 // smallest content area worth cropping to, fraction of the image
	Padding           float64 // margin kept around detected content, fraction of its size
}

// New creates a ContentDetector with default configuration
func New() *ContentDetector {
	return &ContentDetector{
		config: DetectionConfig{
			ActivityThreshold: 0.04,
			MinContentRatio:   0.05,
			Padding:           0.04,
		},
	}
}

// NewWithConfig creates a ContentDetector with custom configuration
func NewWithConfig(config DetectionConfig) *ContentDetector {
	return &ContentDetector{config: config}
}

// Region is a rectangular pixel area of the image.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// Bounds returns the region as an image.Rectangle.
func (r Region) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Expand grows the region by pad (a fraction of its own size) on each side,
// clamped to the image dimensions.
func (r Region) Expand(pad float64, imgWidth, imgHeight int) Region {
	dx := int(pad * float64(r.Width))
	dy := int(pad * float64(r.Height))

	x0 := r.X - dx
	y0 := r.Y - dy
	x1 := r.X + r.Width + dx
	y1 := r.Y + r.Height + dy

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > imgWidth {
		x1 = imgWidth
	}
	if y1 > imgHeight {
		y1 = imgHeight
	}

	return Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: r.Score}
}

// ContentBounds returns the tight region containing the scan's informative
// content, found by trimming border rows and columns whose gradient activity
// stays under the threshold. The full image is returned when activity is
// uniform.
func (d *ContentDetector) ContentBounds(img image.Image) Region {
	lum := luminanceGrid(img)
	h := len(lum)
	if h == 0 {
		return Region{}
	}
	w := len(lum[0])
	if w == 0 {
		return Region{}
	}

	rowAct, colAct := activityProfiles(lum)

	maxAct := 0.0
	for _, v := range rowAct {
		if v > maxAct {
			maxAct = v
		}
	}
	for _, v := range colAct {
		if v > maxAct {
			maxAct = v
		}
	}
	if maxAct == 0 {
		return Region{Width: w, Height: h}
	}

	thr := d.config.ActivityThreshold
	top := 0
	for top < h-1 && rowAct[top]/maxAct < thr {
		top++
	}
	bottom := h - 1
	for bottom > top && rowAct[bottom]/maxAct < thr {
		bottom--
	}
	left := 0
	for left < w-1 && colAct[left]/maxAct < thr {
		left++
	}
	right := w - 1
	for right > left && colAct[right]/maxAct < thr {
		right--
	}

	region := Region{
		X:      left,
		Y:      top,
		Width:  right - left + 1,
		Height: bottom - top + 1,
	}

	var total float64
	for y := top; y <= bottom; y++ {
		total += rowAct[y] / maxAct
	}
	region.Score = total / float64(bottom-top+1)

	return region
}

// PaddedContent returns ContentBounds expanded by the configured padding.
func (d *ContentDetector) PaddedContent(img image.Image) Region {
	b := img.Bounds()
	return d.ContentBounds(img).Expand(d.config.Padding, b.Dx(), b.Dy())
}

// WorthCropping reports whether trimming to region is safe and useful:
// the region must keep at least MinContentRatio of the image and actually
// remove something.
func (d *ContentDetector) WorthCropping(region Region, imgWidth, imgHeight int) bool {
	imageArea := imgWidth * imgHeight
	if imageArea == 0 || region.Area() <= 0 {
		return false
	}
	frac := float64(region.Area()) / float64(imageArea)
	if frac < d.config.MinContentRatio {
		return false
	}
	return frac < 0.98
}

// Exposure returns the mean and standard deviation of luminance inside the
// region, both in [0,1]. Low deviation signals a flat scan that benefits
// from a contrast stretch.
func (d *ContentDetector) Exposure(img image.Image, region Region) (mean, stddev float64) {
	bounds := img.Bounds()
	rect := region.Bounds().Add(bounds.Min).Intersect(bounds)
	if rect.Empty() {
		return 0, 0
	}

	var sum, sumSq float64
	count := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			l := luminanceAt(img, x, y)
			sum += l
			sumSq += l * l
			count++
		}
	}

	mean = sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// luminanceGrid samples the image into a [0,1] luminance grid indexed
// [y][x], origin-shifted so the grid always starts at (0,0).
func luminanceGrid(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	grid := make([][]float64, height)
	for y := 0; y < height; y++ {
		grid[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			grid[y][x] = luminanceAt(img, x+bounds.Min.X, y+bounds.Min.Y)
		}
	}
	return grid
}

func luminanceAt(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(x, y).RGBA()
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 65535.0
}

// activityProfiles reduces the luminance grid to per-row and per-column mean
// gradient magnitudes.
func activityProfiles(lum [][]float64) (rows, cols []float64) {
	h := len(lum)
	w := len(lum[0])

	rows = make([]float64, h)
	cols = make([]float64, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var act float64
			if x+1 < w {
				act += math.Abs(lum[y][x+1] - lum[y][x])
			}
			if y+1 < h {
				act += math.Abs(lum[y+1][x] - lum[y][x])
			}
			rows[y] += act
			cols[x] += act
		}
	}

	for y := range rows {
		rows[y] /= float64(w)
	}
	for x := range cols {
		cols[x] /= float64(h)
	}
	return rows, cols
}
