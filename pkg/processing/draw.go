package processing

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Label metrics for the fixed 7x13 face used on overlays.
const (
	LabelHeight = 13
	LabelAscent = 11
)

// StrokeWidth returns the outline thickness for an image, roughly 0.4% of
// the shorter side with a 2px floor.
func StrokeWidth(w, h int) int {
	m := w
	if h < m {
		m = h
	}
	s := int(0.004*float64(m) + 0.5)
	if s < 2 {
		s = 2
	}
	return s
}

// StrokeRect outlines rect, growing the stroke inward. Empty rects draw
// nothing.
func StrokeRect(img *image.NRGBA, rect image.Rectangle, c color.NRGBA, stroke int) {
	if rect.Empty() {
		return
	}
	for s := 0; s < stroke; s++ {
		DrawHLine(img, rect.Min.Y+s, rect.Min.X, rect.Max.X, c)
		DrawHLine(img, rect.Max.Y-1-s, rect.Min.X, rect.Max.X, c)
		DrawVLine(img, rect.Min.X+s, rect.Min.Y, rect.Max.Y, c)
		DrawVLine(img, rect.Max.X-1-s, rect.Min.Y, rect.Max.Y, c)
	}
}

// FillRect alpha-blends c over rect. Translucent colors tint rather than
// replace the pixels underneath.
func FillRect(img *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Over)
}

// DrawHLine draws a horizontal pixel run at row y from x0 to x1, clipped to
// the image bounds.
func DrawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if x1 <= 0 || x0 >= img.Bounds().Dx() {
		return
	}
	if x0 < 0 {
		x0 = 0
	}
	if x1 > img.Bounds().Dx() {
		x1 = img.Bounds().Dx()
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

// DrawVLine draws a vertical pixel run at column x from y0 to y1, clipped to
// the image bounds.
func DrawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if y1 <= 0 || y0 >= img.Bounds().Dy() {
		return
	}
	if y0 < 0 {
		y0 = 0
	}
	if y1 > img.Bounds().Dy() {
		y1 = img.Bounds().Dy()
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}

// DrawLabel draws text with its baseline starting at (x, y).
func DrawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// LabelWidth returns the pixel width of text in the label face.
func LabelWidth(text string) int {
	return font.MeasureString(basicfont.Face7x13, text).Ceil()
}
