package annotate

import (
	"image"
	"image/color"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/types"
)

var badgeText = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// HeatColor returns the translucent fill for a confidence band. The bands
// are fixed: high confidence fills red, medium amber, everything else blue,
// with alpha dropping alongside confidence.
func HeatColor(tier types.ConfidenceTier) color.NRGBA {
	switch tier {
	case types.TierHigh:
		return color.NRGBA{R: 220, G: 38, B: 38, A: 110}
	case types.TierMedium:
		return color.NRGBA{R: 245, G: 158, B: 11, A: 80}
	default:
		return color.NRGBA{R: 59, G: 130, B: 246, A: 50}
	}
}

// OutlineColor returns the opaque stroke color for a confidence band.
func OutlineColor(tier types.ConfidenceTier) color.NRGBA {
	c := HeatColor(tier)
	c.A = 255
	return c
}

// RenderFrame scales base to the rendered size and rasterizes the active
// view mode over it: translucent fills for heatmap, outlines with numbered
// badges for outline, both for combined. The hovered finding is drawn last
// so it stacks above overlapping siblings. Returns nil when there is nothing
// to render onto.
func (r *Renderer) RenderFrame(base image.Image, viewW, viewH int) *image.NRGBA {
	if base == nil || viewW <= 0 || viewH <= 0 {
		return nil
	}
	out := imaging.Resize(base, viewW, viewH, imaging.Lanczos)
	if r.report == nil {
		return out
	}

	spatial := r.report.SpatialFindings()
	for _, sf := range spatial {
		if sf.Index != r.hovered {
			r.drawOverlay(out, sf, viewW, viewH)
		}
	}
	for _, sf := range spatial {
		if sf.Index == r.hovered {
			r.drawOverlay(out, sf, viewW, viewH)
		}
	}
	return out
}

func (r *Renderer) drawOverlay(out *image.NRGBA, sf types.SpatialFinding, viewW, viewH int) {
	rect := sf.Finding.Box.ImageRect(viewW, viewH)
	if rect.Empty() {
		return
	}
	tier := sf.Finding.Tier()

	if r.mode.showsHeat() {
		processing.FillRect(out, rect, HeatColor(tier))
	}
	if r.mode.showsOutlines() {
		processing.StrokeRect(out, rect, OutlineColor(tier), processing.StrokeWidth(viewW, viewH))
		drawBadge(out, rect, sf.Index, tier)
	}
}

// drawBadge stamps the finding number above the box's top-left corner, or
// inside it when the box touches the top of the frame.
func drawBadge(out *image.NRGBA, rect image.Rectangle, index int, tier types.ConfidenceTier) {
	text := strconv.Itoa(index)
	w := processing.LabelWidth(text) + 6

	y := rect.Min.Y - processing.LabelHeight
	if y < 0 {
		y = rect.Min.Y
	}
	badge := image.Rect(rect.Min.X, y, rect.Min.X+w, y+processing.LabelHeight)
	processing.FillRect(out, badge, OutlineColor(tier))
	processing.DrawLabel(out, rect.Min.X+3, y+processing.LabelAscent, text, badgeText)
}
