// Package processing handles image decode, encode and pixel-level drawing
// for scan images. Every format the dashboard accepts (PNG, JPEG, GIF, BMP,
// WebP) decodes through one path so later stages only ever see image.Image.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Model input bounds. Boxes come back normalized, so downscaling the model's
// copy of a scan costs no annotation precision on the full-resolution
// original.
const (
	ModelInputMaxDim  = 1536
	ModelInputQuality = 90
)

// Processor is the image codec shared by the pipeline stages and renderers.
type Processor struct{}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{}
}

// Decode decodes scan bytes with WebP fallback for files the registered
// decoders reject.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Dimensions returns the native pixel size without decoding the full image.
func (p *Processor) Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read image header: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Encode renders an image to bytes in the given format. Unknown formats
// encode as PNG.
func (p *Processor) Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case "webp":
		opts := &webp.Options{Quality: float32(quality)}
		if err := webp.Encode(&buf, img, opts); err != nil {
			return nil, err
		}
	default:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// FormatForMime maps a mime type to the encode format that preserves it.
func FormatForMime(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return "jpeg"
	case "image/webp":
		return "webp"
	default:
		return "png"
	}
}

// PrepareForModel bounds the pixel size of a scan before it goes to a vision
// model: images longer than maxDim on a side are downscaled and re-encoded as
// JPEG, and the returned mime type reflects that. Bytes that already fit, or
// that do not decode as an image (documents go to the model as-is), pass
// through unchanged along with their original mime type.
func (p *Processor) PrepareForModel(data []byte, mimeType string, maxDim, quality int) ([]byte, string) {
	if maxDim <= 0 {
		return data, mimeType
	}
	img, err := p.Decode(data)
	if err != nil {
		return data, mimeType
	}

	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return data, mimeType
	}
	if b.Dx() >= b.Dy() {
		img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	} else {
		img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
	}

	scaled, err := p.Encode(img, "jpeg", quality)
	if err != nil {
		return data, mimeType
	}
	return scaled, "image/jpeg"
}
