package compress

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math/rand"
	"os"
	"testing"

	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// noisyRGBA returns an opaque image of random pixels. Noise keeps JPEG
// output roughly proportional to pixel count, which makes budgets predictable.
func noisyRGBA(width, height int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return img
}

// translucentNRGBA returns a noisy image whose alpha varies per pixel.
func translucentNRGBA(width, height int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	rng.Read(img.Pix)
	return img
}

// flatGray returns a uniform grayscale image, which JPEG compresses to almost
// nothing.
func flatGray(width, height int, y uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

// decodeJPEG decodes output bytes and fails if they are not a JPEG.
func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid JPEG: %v", err)
	}
	return img
}

// baselineKB returns the full-size encode size of img at quality.
func baselineKB(t *testing.T, img image.Image, quality int) float64 {
	t.Helper()
	buf, err := imaging.Normalize(imaging.FromImage(img), imaging.NormalizeOptions{})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	data, err := imaging.EncodeJPEG(buf, quality)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	return imaging.SizeKB(data)
}

func bytesRequest(t *testing.T, data []byte, p Params) Request {
	t.Helper()
	return Request{Source: imaging.BytesSource{Name: t.Name(), Data: data}, Params: p}
}


func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}
