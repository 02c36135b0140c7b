// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createTestImage creates a simple test image with the given dimensions.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestNormalizeJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(40, 30), nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	result, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if result.Width != 40 || result.Height != 30 {
		t.Errorf("dimensions = %dx%d, want 40x30", result.Width, result.Height)
	}

	// Output must itself decode as JPEG
	if _, err := jpeg.Decode(bytes.NewReader(result.Data)); err != nil {
		t.Errorf("output is not valid JPEG: %v", err)
	}
}

func TestNormalizePNGConvertsToJPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(16, 16)); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	result, err := Normalize(buf.Bytes())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if _, err := jpeg.Decode(bytes.NewReader(result.Data)); err != nil {
		t.Errorf("output is not valid JPEG: %v", err)
	}
}

func TestNormalizeRejectsNonImage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"html error page", []byte("<html><body>403 Forbidden</body></html>")},
		{"truncated jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.data); err == nil {
				t.Error("expected error for non-image data")
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg magic bytes", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png magic bytes", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"gif magic bytes", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61}, "gif"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFormat(tt.data); got != tt.want {
				t.Errorf("detectFormat() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyOrientation(t *testing.T) {
	// Verify it doesn't panic for all orientations 1-8 plus out-of-range
	tests := []int{1, 2, 3, 4, 5, 6, 7, 8, 0, 9}

	for _, orientation := range tests {
		t.Run("orientation_"+string(rune('0'+orientation)), func(t *testing.T) {
			img := createTestImage(10, 10)
			result := applyOrientation(img, orientation)
			if result == nil {
				t.Error("applyOrientation returned nil")
			}
		})
	}
}
