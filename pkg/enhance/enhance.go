// Package enhance implements scan enhancement without a hosted model: it
// trims uninformative borders, lifts flat contrast and sharpens edges using
// local image processing only.
package enhance

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/vision"
)

// Enhancer combines the content detector with pixel adjustments. It
// implements the enhancement capability for offline or quota-limited
// deployments.
type Enhancer struct {
	processor *processing.Processor
	detector  *vision.ContentDetector
	config    Config
}

// Config holds tuning for local enhancement
type Config struct {
	MaxAnalysisDim int     // detection runs on a thumbnail no larger than this
	FlatDeviation  float64 // content deviation under this triggers a contrast lift
	ContrastBoost  float64 // percentage passed to the contrast adjustment
	MinBrightness  float64 // mean luminance under this triggers a gamma lift
	Sharpen        float64 // sigma for the final sharpening pass
	Quality        int     // encode quality for lossy outputs
}

// DefaultConfig returns the enhancement defaults
func DefaultConfig() Config {
	return Config{
		MaxAnalysisDim: 512,
		FlatDeviation:  0.18,
		ContrastBoost:  12,
		MinBrightness:  0.22,
		Sharpen:        0.6,
		Quality:        92,
	}
}

// New creates an Enhancer with default configuration
func New() *Enhancer {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates an Enhancer with custom configuration
func NewWithConfig(config Config) *Enhancer {
	return &Enhancer{
		processor: processing.NewProcessor(),
		detector:  vision.New(),
		config:    config,
	}
}

// EnhanceImage implements the enhancement capability. Non-image payloads and
// scans with nothing to improve decline with (nil, nil); the caller keeps
// the original bytes.
func (e *Enhancer) EnhanceImage(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	if !utils.IsImageMime(mimeType) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := e.processor.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode for enhancement: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return nil, nil
	}

	// Detect on a thumbnail, project the region back to native pixels.
	analysis := img
	scale := 1.0
	if m := maxInt(w, h); m > e.config.MaxAnalysisDim && e.config.MaxAnalysisDim > 0 {
		scale = float64(m) / float64(e.config.MaxAnalysisDim)
		if w >= h {
			analysis = imaging.Resize(img, e.config.MaxAnalysisDim, 0, imaging.Lanczos)
		} else {
			analysis = imaging.Resize(img, 0, e.config.MaxAnalysisDim, imaging.Lanczos)
		}
	}

	region := e.detector.PaddedContent(analysis)
	if region.Score <= 0 {
		// Uniform frame, nothing informative to work with.
		return nil, nil
	}
	ab := analysis.Bounds()

	out := imaging.Clone(img)
	changed := false

	if e.detector.WorthCropping(region, ab.Dx(), ab.Dy()) {
		native := scaleRegion(region, scale, w, h)
		if native.Area() > 0 {
			out = imaging.Crop(out, native.Bounds())
			changed = true
		}
	}

	mean, dev := e.detector.Exposure(analysis, region)
	if dev > 0 && dev < e.config.FlatDeviation {
		out = imaging.AdjustContrast(out, e.config.ContrastBoost)
		changed = true
	}
	if mean > 0 && mean < e.config.MinBrightness {
		out = imaging.AdjustGamma(out, 1.25)
		changed = true
	}
	if changed && e.config.Sharpen > 0 {
		out = imaging.Sharpen(out, e.config.Sharpen)
	}

	if !changed {
		return nil, nil
	}

	encoded, err := e.processor.Encode(out, processing.FormatForMime(mimeType), e.config.Quality)
	if err != nil {
		return nil, fmt.Errorf("encode enhanced image: %w", err)
	}
	return encoded, nil
}

// scaleRegion projects a thumbnail-space region back to native pixels.
func scaleRegion(r vision.Region, scale float64, maxW, maxH int) vision.Region {
	x0 := int(float64(r.X)*scale + 0.5)
	y0 := int(float64(r.Y)*scale + 0.5)
	x1 := int(float64(r.X+r.Width)*scale + 0.5)
	y1 := int(float64(r.Y+r.Height)*scale + 0.5)

	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > maxW {
		x1 = maxW
	}
	if y1 > maxH {
		y1 = maxH
	}

	return vision.Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0, Score: r.Score}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
