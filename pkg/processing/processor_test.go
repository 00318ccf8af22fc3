package processing

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

// createTestImage creates a simple test image with a gradient pattern
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 255 / width),
				G: uint8(y * 255 / height),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewProcessor()
	src := createTestImage(32, 24)

	for _, format := range []string{"png", "jpeg", "webp"} {
		t.Run(format, func(t *testing.T) {
			data, err := p.Encode(src, format, 90)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(data) == 0 {
				t.Fatal("Encode produced no bytes")
			}

			img, err := p.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != 32 || b.Dy() != 24 {
				t.Errorf("expected 32x24, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Decode([]byte("definitely not an image")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestDimensions(t *testing.T) {
	p := NewProcessor()
	data, err := p.Encode(createTestImage(64, 48), "png", 90)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	w, h, err := p.Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("expected 64x48, got %dx%d", w, h)
	}
}

func TestFormatMimeMapping(t *testing.T) {
	tests := []struct {
		mime   string
		format string
	}{
		{"image/jpeg", "jpeg"},
		{"image/webp", "webp"},
		{"image/png", "png"},
		{"application/pdf", "png"},
	}

	for _, tt := range tests {
		if got := FormatForMime(tt.mime); got != tt.format {
			t.Errorf("FormatForMime(%q) = %q, want %q", tt.mime, got, tt.format)
		}
	}
}

func TestPrepareForModelDownscales(t *testing.T) {
	p := NewProcessor()
	src, err := p.Encode(createTestImage(100, 50), "png", 90)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out, mime := p.PrepareForModel(src, "image/png", 50, 90)
	if mime != "image/jpeg" {
		t.Errorf("expected image/jpeg after downscale, got %q", mime)
	}
	w, h, err := p.Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 50 || h != 25 {
		t.Errorf("expected 50x25 after downscale, got %dx%d", w, h)
	}
}

func TestPrepareForModelDownscalesPortrait(t *testing.T) {
	p := NewProcessor()
	src, err := p.Encode(createTestImage(50, 100), "png", 90)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out, _ := p.PrepareForModel(src, "image/png", 50, 90)
	w, h, err := p.Dimensions(out)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 25 || h != 50 {
		t.Errorf("expected 25x50 after downscale, got %dx%d", w, h)
	}
}

func TestPrepareForModelKeepsSmallImages(t *testing.T) {
	p := NewProcessor()
	src, err := p.Encode(createTestImage(30, 20), "png", 90)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	out, mime := p.PrepareForModel(src, "image/png", 100, 90)
	if !bytes.Equal(out, src) {
		t.Error("small image should pass through unchanged")
	}
	if mime != "image/png" {
		t.Errorf("mime should be unchanged, got %q", mime)
	}
}

func TestPrepareForModelPassesThroughDocuments(t *testing.T) {
	p := NewProcessor()
	doc := []byte("%PDF-1.4 not an image")

	out, mime := p.PrepareForModel(doc, "application/pdf", 1536, 90)
	if !bytes.Equal(out, doc) {
		t.Error("non-image bytes should pass through unchanged")
	}
	if mime != "application/pdf" {
		t.Errorf("mime should be unchanged, got %q", mime)
	}
}
