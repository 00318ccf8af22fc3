package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsImageMime(t *testing.T) {
	tests := []struct {
		mime string
		want bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"IMAGE/WEBP", true},
		{"image/png; charset=binary", true},
		{"application/pdf", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsImageMime(tt.mime); got != tt.want {
			t.Errorf("IsImageMime(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestDetectMimeType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"scan.png", "image/png"},
		{"xray.jpg", "image/jpeg"},
		{"report.pdf", "application/pdf"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := DetectMimeType(tt.filename); got != tt.want {
			t.Errorf("DetectMimeType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestGetFileExtension(t *testing.T) {
	if got := GetFileExtension("scan.PNG"); got != "png" {
		t.Errorf("expected lowercase extension, got %q", got)
	}
	if got := GetFileExtension("noext"); got != "" {
		t.Errorf("expected empty extension, got %q", got)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := SanitizeFilename(`chest/xray:2024?.png`); got != "chest_xray_2024_.png" {
		t.Errorf("unexpected sanitized name %q", got)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if !FileExists(path) {
		t.Error("expected true for an existing file")
	}
	if FileExists(filepath.Join(dir, "absent.png")) {
		t.Error("expected false for a missing file")
	}
	if FileExists(dir) {
		t.Error("expected false for a directory")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
