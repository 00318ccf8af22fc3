package vision

import (
	"image"
	"image/color"
	"testing"
)

// createScanImage creates a test image with a bright textured center and
// uniform dark borders, like an X-ray on film.
func createScanImage(width, height, border int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x < border || x >= width-border || y < border || y >= height-border {
				img.Set(x, y, color.RGBA{5, 5, 5, 255})
			} else {
				// Checker texture so the content has gradient activity
				v := uint8(90)
				if (x/4+y/4)%2 == 0 {
					v = 200
				}
				img.Set(x, y, color.RGBA{v, v, v, 255})
			}
		}
	}
	return img
}

func TestNew(t *testing.T) {
	detector := New()
	if detector == nil {
		t.Fatal("New() returned nil")
	}
	if detector.config.ActivityThreshold != 0.04 {
		t.Errorf("Expected activity threshold 0.04, got %f", detector.config.ActivityThreshold)
	}
}

func TestNewWithConfig(t *testing.T) {
	cfg := DetectionConfig{
		ActivityThreshold: 0.2,
		MinContentRatio:   0.1,
		Padding:           0.05,
	}

	detector := NewWithConfig(cfg)
	if detector.config.ActivityThreshold != 0.2 {
		t.Errorf("Expected activity threshold 0.2, got %f", detector.config.ActivityThreshold)
	}
}

func TestRegionCenter(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}

	centerX, centerY := region.Center()
	if centerX != 60 || centerY != 60 {
		t.Errorf("Expected center (60, 60), got (%d, %d)", centerX, centerY)
	}
}

func TestRegionArea(t *testing.T) {
	region := Region{X: 10, Y: 20, Width: 100, Height: 80}
	if region.Area() != 8000 {
		t.Errorf("Expected area 8000, got %d", region.Area())
	}
}

func TestRegionExpandClamps(t *testing.T) {
	region := Region{X: 2, Y: 2, Width: 96, Height: 96}
	expanded := region.Expand(0.1, 100, 100)

	if expanded.X < 0 || expanded.Y < 0 {
		t.Errorf("Expanded region escapes origin: (%d, %d)", expanded.X, expanded.Y)
	}
	if expanded.X+expanded.Width > 100 || expanded.Y+expanded.Height > 100 {
		t.Error("Expanded region escapes image bounds")
	}
	if expanded.Area() < region.Area() {
		t.Error("Expand should never shrink the region")
	}
}

func TestContentBoundsTrimsBorders(t *testing.T) {
	detector := New()
	img := createScanImage(200, 160, 30)

	region := detector.ContentBounds(img)

	if region.Width <= 0 || region.Height <= 0 {
		t.Fatalf("Invalid region dimensions: %dx%d", region.Width, region.Height)
	}

	// The detected region should land near the textured center, well inside
	// the 30px uniform borders.
	if region.X < 20 || region.Y < 20 {
		t.Errorf("Expected borders trimmed, region starts at (%d, %d)", region.X, region.Y)
	}
	if region.X+region.Width > 180 || region.Y+region.Height > 140 {
		t.Errorf("Region extends into the border: %+v", region)
	}
	if region.Score <= 0 {
		t.Errorf("Expected positive activity score, got %f", region.Score)
	}
}

func TestContentBoundsUniformImage(t *testing.T) {
	detector := New()
	img := image.NewRGBA(image.Rect(0, 0, 50, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 50; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}

	region := detector.ContentBounds(img)
	if region.Width != 50 || region.Height != 50 {
		t.Errorf("Uniform image should return full bounds, got %+v", region)
	}
}

func TestWorthCropping(t *testing.T) {
	detector := New()

	if detector.WorthCropping(Region{Width: 100, Height: 100}, 100, 100) {
		t.Error("Full-frame region should not be worth cropping")
	}
	if detector.WorthCropping(Region{Width: 5, Height: 5}, 1000, 1000) {
		t.Error("Tiny region should not be worth cropping")
	}
	if !detector.WorthCropping(Region{Width: 60, Height: 60}, 100, 100) {
		t.Error("Mid-size region should be worth cropping")
	}
}

func TestExposure(t *testing.T) {
	detector := New()
	img := createScanImage(100, 100, 10)

	// Content region has mixed bright and dark texture.
	mean, stddev := detector.Exposure(img, Region{X: 20, Y: 20, Width: 60, Height: 60})
	if mean <= 0 || mean >= 1 {
		t.Errorf("Expected mean in (0,1), got %f", mean)
	}
	if stddev <= 0 {
		t.Errorf("Expected positive deviation for textured region, got %f", stddev)
	}

	// Border region is flat.
	_, borderDev := detector.Exposure(img, Region{X: 0, Y: 0, Width: 8, Height: 8})
	if borderDev >= stddev {
		t.Errorf("Flat border should have lower deviation: %f vs %f", borderDev, stddev)
	}
}

func TestPaddedContentStaysInBounds(t *testing.T) {
	detector := New()
	img := createScanImage(120, 120, 15)

	region := detector.PaddedContent(img)
	if region.X < 0 || region.Y < 0 || region.X+region.Width > 120 || region.Y+region.Height > 120 {
		t.Errorf("Padded region escapes image: %+v", region)
	}
}

func BenchmarkContentBounds(b *testing.B) {
	detector := New()
	img := createScanImage(400, 300, 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detector.ContentBounds(img)
	}
}
