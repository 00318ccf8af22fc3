// Package annotate lays out and rasterizes finding overlays for the scan
// viewer. Overlay geometry is recomputed from the normalized boxes against
// the current rendered size on every call, so annotations stay aligned when
// the viewport resizes.
package annotate

import (
	"strings"

	"github.com/mediquest/medscan/pkg/types"
)

// ViewMode selects which overlay layers are rendered. The modes are mutually
// exclusive; Combined shows both layers.
type ViewMode string

const (
	ModeOutline  ViewMode = "outline"
	ModeHeatmap  ViewMode = "heatmap"
	ModeCombined ViewMode = "combined"
)

// ParseViewMode maps user input to a view mode. Unknown input selects
// Combined.
func ParseViewMode(s string) ViewMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outline":
		return ModeOutline
	case "heatmap":
		return ModeHeatmap
	default:
		return ModeCombined
	}
}

func (m ViewMode) showsOutlines() bool { return m != ModeHeatmap }
func (m ViewMode) showsHeat() bool     { return m != ModeOutline }

// Overlay is one finding's spatial presence at the current rendered size.
type Overlay struct {
	// Index is the finding's 1-based position in report order. It matches
	// the numbering of the full findings list, including boxless findings.
	Index   int
	Label   string
	Tier    types.ConfidenceTier
	Rect    types.PixelRect
	ZIndex  int
	Hovered bool
}

// Popup is the hover detail for one finding.
type Popup struct {
	Index      int
	Label      string
	Confidence string
	Tier       types.ConfidenceTier
}

// Renderer tracks one viewer's annotation state: the report being shown, the
// active view mode, and which finding the pointer is over. It is not safe
// for concurrent use; each viewer owns its own Renderer.
type Renderer struct {
	report  *types.AnalysisReport
	mode    ViewMode
	hovered int // 1-based finding index, 0 when nothing is hovered
}

// NewRenderer returns a renderer for the report in Combined mode.
func NewRenderer(report *types.AnalysisReport) *Renderer {
	return &Renderer{report: report, mode: ModeCombined}
}

// SetMode switches the active view mode.
func (r *Renderer) SetMode(mode ViewMode) {
	r.mode = mode
}

// Mode returns the active view mode.
func (r *Renderer) Mode() ViewMode {
	return r.mode
}

// Overlays lays out one overlay per finding with a box, in report order, for
// a viewport of viewW by viewH pixels. The hovered overlay carries an
// elevated ZIndex so it stacks above its siblings.
func (r *Renderer) Overlays(viewW, viewH float64) []Overlay {
	overlays := make([]Overlay, 0)
	if r.report == nil || viewW <= 0 || viewH <= 0 {
		return overlays
	}

	for _, sf := range r.report.SpatialFindings() {
		hovered := sf.Index == r.hovered
		z := 1
		if hovered {
			z = 2
		}
		overlays = append(overlays, Overlay{
			Index:   sf.Index,
			Label:   sf.Finding.Label,
			Tier:    sf.Finding.Tier(),
			Rect:    sf.Finding.Box.PixelRect(viewW, viewH),
			ZIndex:  z,
			Hovered: hovered,
		})
	}
	return overlays
}

// HoverEnter marks the finding at the 1-based index as hovered. The last
// enter wins. Indexes outside the report are ignored.
func (r *Renderer) HoverEnter(index int) {
	if r.report == nil || index < 1 || index > len(r.report.Findings) {
		return
	}
	r.hovered = index
}

// HoverLeave clears the hover only when index is the currently hovered
// finding, so a stale leave event cannot cancel a newer enter.
func (r *Renderer) HoverLeave(index int) {
	if r.hovered == index {
		r.hovered = 0
	}
}

// Hovered returns the hovered finding's 1-based index, or 0.
func (r *Renderer) Hovered() int {
	return r.hovered
}

// Popup returns the hover detail for the hovered finding, or nil when
// nothing is hovered.
func (r *Renderer) Popup() *Popup {
	if r.report == nil || r.hovered < 1 || r.hovered > len(r.report.Findings) {
		return nil
	}
	f := r.report.Findings[r.hovered-1]
	return &Popup{
		Index:      r.hovered,
		Label:      f.Label,
		Confidence: f.Confidence,
		Tier:       f.Tier(),
	}
}
