package types

import (
	"image"
	"time"
)

// NormalizedBox represents a region of interest in image-relative coordinates,
// each value conceptually in the [0,1] range. The same box annotates a
// thumbnail and a full-resolution export without rescaling. Producers (vision
// models) do not always respect YMin <= YMax or XMin <= XMax; consumers must
// tolerate such boxes and render them as zero-area.
type NormalizedBox struct {
	YMin float64 `json:"yMin"`
	XMin float64 `json:"xMin"`
	YMax float64 `json:"yMax"`
	XMax float64 `json:"xMax"`
}

// PixelRect is a box projected onto a concrete pixel rectangle.
type PixelRect struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// PixelRect projects the box onto a target rectangle of the given pixel
// dimensions. Coordinates are clamped to [0,1] first; inverted or degenerate
// spans collapse to zero so the box renders as invisible rather than erroring.
// Callers recompute on every resize; pixel geometry is never cached.
func (b NormalizedBox) PixelRect(width, height float64) PixelRect {
	y0 := clamp01(b.YMin)
	x0 := clamp01(b.XMin)
	y1 := clamp01(b.YMax)
	x1 := clamp01(b.XMax)

	w := (x1 - x0) * width
	h := (y1 - y0) * height
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}

	return PixelRect{
		Top:    y0 * height,
		Left:   x0 * width,
		Width:  w,
		Height: h,
	}
}

// ImageRect converts the box to an image.Rectangle at the given native
// dimensions, rounding half up. Degenerate boxes produce an empty rectangle.
func (b NormalizedBox) ImageRect(width, height int) image.Rectangle {
	r := b.PixelRect(float64(width), float64(height))
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}
	}
	x0 := int(r.Left + 0.5)
	y0 := int(r.Top + 0.5)
	x1 := int(r.Left + r.Width + 0.5)
	y1 := int(r.Top + r.Height + 0.5)
	return image.Rect(x0, y0, x1, y1)
}

// Normalized recovers the normalized box from a pixel rectangle. Inverse of
// NormalizedBox.PixelRect up to floating-point rounding.
func (r PixelRect) Normalized(width, height float64) NormalizedBox {
	if width <= 0 || height <= 0 {
		return NormalizedBox{}
	}
	return NormalizedBox{
		YMin: r.Top / height,
		XMin: r.Left / width,
		YMax: (r.Top + r.Height) / height,
		XMax: (r.Left + r.Width) / width,
	}
}

// Finding is one labeled observation from scan analysis. A nil Box means the
// finding is textual (e.g. an out-of-range lab value) and carries no screen
// region: it is kept in the report but excluded from spatial rendering.
type Finding struct {
	Label       string         `json:"label"`
	Confidence  string         `json:"confidence"`
	Explanation string         `json:"explanation"`
	Box         *NormalizedBox `json:"box,omitempty"`
}

// Tier classifies the finding's free-text confidence into the three-band scale.
func (f Finding) Tier() ConfidenceTier {
	return ParseConfidenceTier(f.Confidence)
}

// AnalysisReport is the structured result of the analysis stage. Findings
// keep model order: a finding's 1-based position is its stable on-screen
// badge number. Findings is never nil.
type AnalysisReport struct {
	Summary    string    `json:"summary"`
	Findings   []Finding `json:"findings"`
	Disclaimer string    `json:"disclaimer"`
}

// SpatialFinding pairs a finding that carries a box with its 1-based badge
// number in full report order (boxless findings still consume a number).
type SpatialFinding struct {
	Index   int
	Finding Finding
}

// SpatialFindings returns the findings that carry a box, in report order.
func (r *AnalysisReport) SpatialFindings() []SpatialFinding {
	out := make([]SpatialFinding, 0, len(r.Findings))
	for i, f := range r.Findings {
		if f.Box == nil {
			continue
		}
		out = append(out, SpatialFinding{Index: i + 1, Finding: f})
	}
	return out
}

// PipelineRecord is the per-upload unit of work, created when the raw bytes
// arrive and mutated in place as pipeline stages complete. Once Report is set
// and the record handed to a store, the stored copy is authoritative and the
// in-memory one is a read-only cache.
type PipelineRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	MimeType  string          `json:"mimeType"`
	Timestamp time.Time       `json:"timestamp"`
	Original  []byte          `json:"original,omitempty"`
	Enhanced  []byte          `json:"enhanced,omitempty"`
	Report    *AnalysisReport `json:"report,omitempty"`
}

// FinalBytes returns the bytes downstream stages should consume: the enhanced
// image when enhancement produced one, otherwise the original upload.
func (r *PipelineRecord) FinalBytes() []byte {
	if len(r.Enhanced) > 0 {
		return r.Enhanced
	}
	return r.Original
}

// Clone returns a deep copy of the record. Stores copy before stripping or
// caching so the caller's record is never mutated underneath it.
func (r *PipelineRecord) Clone() *PipelineRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Original != nil {
		c.Original = append([]byte(nil), r.Original...)
	}
	if r.Enhanced != nil {
		c.Enhanced = append([]byte(nil), r.Enhanced...)
	}
	if r.Report != nil {
		rep := *r.Report
		rep.Findings = append([]Finding(nil), r.Report.Findings...)
		c.Report = &rep
	}
	return &c
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
