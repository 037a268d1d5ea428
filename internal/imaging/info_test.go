package imaging

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestInspect(t *testing.T) {
	translucent := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 100})

	deep := image.NewRGBA64(image.Rect(0, 0, 6, 6))
	for i := range deep.Pix {
		deep.Pix[i] = 0xff
	}

	tests := []struct {
		name         string
		data         []byte
		wantFormat   string
		wantChannels int
		wantAlpha    bool
		wantDepth    string
	}{
		{"rgb png", encodePNG(t, createNoisyImage(20, 10, 1)), "png", 3, false, "8-bit"},
		{"rgba png", encodePNG(t, translucent), "png", 4, true, "8-bit"},
		{"gray png", encodePNG(t, image.NewGray(image.Rect(0, 0, 5, 5))), "png", 1, false, "8-bit"},
		{"16-bit png", encodePNG(t, deep), "png", 3, false, "16-bit"},
		{"jpeg", encodeStdJPEG(t, createNoisyImage(12, 12, 2), 80), "jpeg", 3, false, "8-bit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect(tt.data)
			if err != nil {
				t.Fatalf("Inspect failed: %v", err)
			}
			if info.Format != tt.wantFormat {
				t.Errorf("Format = %q, want %q", info.Format, tt.wantFormat)
			}
			if info.Channels != tt.wantChannels {
				t.Errorf("Channels = %d, want %d", info.Channels, tt.wantChannels)
			}
			if info.HasAlpha != tt.wantAlpha {
				t.Errorf("HasAlpha = %v, want %v", info.HasAlpha, tt.wantAlpha)
			}
			if info.ColorDepth != tt.wantDepth {
				t.Errorf("ColorDepth = %q, want %q", info.ColorDepth, tt.wantDepth)
			}
			if info.SizeBytes != int64(len(tt.data)) {
				t.Errorf("SizeBytes = %d, want %d", info.SizeBytes, len(tt.data))
			}
		})
	}
}

func TestInspect_NotAnImage(t *testing.T) {
	_, err := Inspect([]byte("plain text"))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestInspectSource(t *testing.T) {
	path := writeTempFile(t, "img.png", encodePNG(t, createNoisyImage(30, 20, 3)))

	info, err := InspectSource(context.Background(), FileSource{Path: path})
	if err != nil {
		t.Fatalf("InspectSource failed: %v", err)
	}
	if info.Width != 30 || info.Height != 20 {
		t.Errorf("dimensions = %dx%d, want 30x20", info.Width, info.Height)
	}

	_, err = InspectSource(context.Background(), FileSource{Path: "/nonexistent.png"})
	var srcErr *SourceUnavailableError
	if !errors.As(err, &srcErr) {
		t.Errorf("expected SourceUnavailableError, got %v", err)
	}
}

func TestGetDimensions(t *testing.T) {
	dims, err := GetDimensions(encodePNG(t, createNoisyImage(200, 150, 4)))
	if err != nil {
		t.Fatalf("GetDimensions failed: %v", err)
	}
	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("dimensions = %dx%d, want 200x150", dims.Width, dims.Height)
	}

	_, err = GetDimensions([]byte("nope"))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Errorf("expected DecodeError, got %v", err)
	}
}
