// Package export flattens a scan and its findings into a single downloadable
// image. Rendering happens at the source image's native resolution, so the
// export is independent of how the scan was displayed on screen.
package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/mediquest/medscan/internal/utils"
	"github.com/mediquest/medscan/pkg/processing"
	"github.com/mediquest/medscan/pkg/types"
)

// Artifact is a rendered export ready for download.
type Artifact struct {
	Name     string
	MimeType string
	Data     []byte
}

// Options control the export drawing style.
type Options struct {
	// Highlight is the single color used for box outlines and label
	// backgrounds.
	Highlight color.NRGBA

	// Text is the label text color.
	Text color.NRGBA

	// Suffix is inserted before the extension of the artifact name.
	Suffix string
}

// DefaultOptions returns the dashboard's export style.
func DefaultOptions() Options {
	return Options{
		Highlight: color.NRGBA{R: 255, G: 82, B: 82, A: 255},
		Text:      color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		Suffix:    "-annotated",
	}
}

// Renderer rasterizes records into artifacts. The image codec is injected so
// the renderer never reaches for a drawing surface of its own.
type Renderer struct {
	codec *processing.Processor
	opts  Options
}

// New returns a renderer with the default style.
func New(codec *processing.Processor) *Renderer {
	return NewWithOptions(codec, DefaultOptions())
}

// NewWithOptions returns a renderer with a custom style. A nil codec gets a
// default processor.
func NewWithOptions(codec *processing.Processor, opts Options) *Renderer {
	if codec == nil {
		codec = processing.NewProcessor()
	}
	return &Renderer{codec: codec, opts: opts}
}

// Render flattens the record's final image and findings into a PNG artifact.
// A record with no image bytes or no report produces (nil, nil), a no-op
// rather than an error. Box coordinates are projected onto the native pixel
// dimensions of the decoded image.
func (r *Renderer) Render(rec *types.PipelineRecord) (*Artifact, error) {
	if rec == nil || rec.Report == nil || len(rec.FinalBytes()) == 0 {
		return nil, nil
	}

	src, err := r.codec.Decode(rec.FinalBytes())
	if err != nil {
		return nil, fmt.Errorf("failed to decode export source: %w", err)
	}

	img := imaging.Clone(src)
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	stroke := processing.StrokeWidth(w, h)
	scale := stroke / 2
	if scale < 1 {
		scale = 1
	}

	for _, sf := range rec.Report.SpatialFindings() {
		rect := sf.Finding.Box.ImageRect(w, h)
		if rect.Empty() {
			continue
		}
		processing.StrokeRect(img, rect, r.opts.Highlight, stroke)
		r.drawLabel(img, rect, fmt.Sprintf("%d: %s", sf.Index, sf.Finding.Label), scale)
	}

	data, err := r.codec.Encode(img, "png", 100)
	if err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}

	return &Artifact{
		Name:     r.artifactName(rec.Name),
		MimeType: "image/png",
		Data:     data,
	}, nil
}

// drawLabel paints the label box directly above the finding's rectangle,
// moving it inside when the rectangle touches the top edge. The label is
// rasterized at base size and upscaled alongside the stroke so it stays
// legible on high-resolution scans.
func (r *Renderer) drawLabel(img *image.NRGBA, rect image.Rectangle, text string, scale int) {
	textW := processing.LabelWidth(text) + 8
	boxW := textW * scale
	boxH := processing.LabelHeight * scale

	y := rect.Min.Y - boxH
	if y < 0 {
		y = rect.Min.Y
	}

	stamp := image.NewNRGBA(image.Rect(0, 0, textW, processing.LabelHeight))
	processing.FillRect(stamp, stamp.Bounds(), r.opts.Highlight)
	processing.DrawLabel(stamp, 4, processing.LabelAscent, text, r.opts.Text)

	placed := stamp
	if scale > 1 {
		placed = imaging.Resize(stamp, boxW, boxH, imaging.NearestNeighbor)
	}

	target := image.Rect(rect.Min.X, y, rect.Min.X+boxW, y+boxH)
	draw.Draw(img, target.Intersect(img.Bounds()), placed, image.Point{}, draw.Src)
}

func (r *Renderer) artifactName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "scan"
	}
	return utils.SanitizeFilename(base) + r.opts.Suffix + ".png"
}
