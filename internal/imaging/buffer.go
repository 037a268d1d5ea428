package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// PixelBuffer is an 8-bit, row-major, channel-interleaved raster.
//
// Channels is 1 (grayscale), 3 (RGB) or 4 (RGB plus alpha). Buffers returned
// by Normalize never carry alpha. A PixelBuffer is never mutated after
// construction; every resize produces a new buffer.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int

	// Pix holds Height*Width*Channels samples in R,G,B[,A] order (or a single
	// luma sample per pixel when Channels is 1).
	Pix []uint8
}

// Shape returns the buffer shape in [height width channels] form, or
// [height width] for single-channel buffers.
func (b *PixelBuffer) Shape() []int {
	if b.Channels == 1 {
		return []int{b.Height, b.Width}
	}
	return []int{b.Height, b.Width, b.Channels}
}

func (b *PixelBuffer) validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return &UnsupportedShapeError{Shape: b.Shape(), Reason: "width and height must be positive"}
	}
	switch b.Channels {
	case 1, 3, 4:
	default:
		return &UnsupportedShapeError{Shape: b.Shape(), Reason: "channel count must be 1, 3 or 4"}
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return &UnsupportedShapeError{
			Shape:  b.Shape(),
			Reason: fmt.Sprintf("have %d samples, shape requires %d", len(b.Pix), want),
		}
	}
	return nil
}

// Image wraps the buffer as an image.Image without copying sample data where
// the layout allows it. Single-channel buffers become *image.Gray; three
// channel buffers become an opaque *image.NRGBA.
func (b *PixelBuffer) Image() image.Image {
	rect := image.Rect(0, 0, b.Width, b.Height)
	switch b.Channels {
	case 1:
		return &image.Gray{Pix: b.Pix, Stride: b.Width, Rect: rect}
	case 4:
		return &image.NRGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: rect}
	}

	dst := image.NewNRGBA(rect)
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		dst.Pix[j+0] = b.Pix[i+0]
		dst.Pix[j+1] = b.Pix[i+1]
		dst.Pix[j+2] = b.Pix[i+2]
		dst.Pix[j+3] = 0xff
	}
	return dst
}

// hasAlphaChannel reports whether a decoded image carries an alpha channel
// that must be represented as a fourth sample.
func hasAlphaChannel(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64:
		return true
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// channelsOf returns the sample count per pixel a decoded image maps to.
func channelsOf(img image.Image) int {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return 1
	}
	if hasAlphaChannel(img) {
		return 4
	}
	return 3
}

// FromImage converts a decoded image into a PixelBuffer.
//
// Grayscale images keep a single channel. Images with an alpha channel keep
// four, in non-premultiplied form. Everything else (YCbCr, CMYK, paletted,
// opaque RGBA) becomes three-channel RGB. 16-bit samples are reduced to their
// high byte.
func FromImage(img image.Image) *PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	channels := channelsOf(img)

	if channels == 1 {
		buf := &PixelBuffer{Width: w, Height: h, Channels: 1, Pix: make([]uint8, w*h)}
		switch g := img.(type) {
		case *image.Gray:
			for y := 0; y < h; y++ {
				off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
				copy(buf.Pix[y*w:(y+1)*w], g.Pix[off:off+w])
			}
		case *image.Gray16:
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					buf.Pix[y*w+x] = uint8(g.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y >> 8)
				}
			}
		}
		return buf
	}

	return fromNRGBA(imaging.Clone(img), channels)
}

// fromNRGBA extracts the requested channel count from an NRGBA image. For a
// single channel the red sample is used, which is the luma value for images
// produced from grayscale sources.
func fromNRGBA(src *image.NRGBA, channels int) *PixelBuffer {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	buf := &PixelBuffer{Width: w, Height: h, Channels: channels, Pix: make([]uint8, w*h*channels)}

	i := 0
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w*4; x += 4 {
			switch channels {
			case 1:
				buf.Pix[i] = row[x]
			case 3:
				buf.Pix[i+0] = row[x+0]
				buf.Pix[i+1] = row[x+1]
				buf.Pix[i+2] = row[x+2]
			case 4:
				copy(buf.Pix[i:i+4], row[x:x+4])
			}
			i += channels
		}
	}
	return buf
}

// FromSamples builds a PixelBuffer from a raw sample array.
//
// shape is [height width] or [height width channels] with channels in
// {1, 3, 4}; anything else fails with *UnsupportedShapeError, as does a sample
// count that does not match the shape. Supported sample slices are []uint8,
// []uint16, []int, []int32, []int64, []float32 and []float64; other types fail
// with *InvalidTypeError. Values are truncated toward zero and clamped to
// [0, 255] rather than wrapped.
func FromSamples(shape []int, samples any) (*PixelBuffer, error) {
	var buf PixelBuffer
	switch len(shape) {
	case 2:
		buf = PixelBuffer{Height: shape[0], Width: shape[1], Channels: 1}
	case 3:
		buf = PixelBuffer{Height: shape[0], Width: shape[1], Channels: shape[2]}
	default:
		return nil, &UnsupportedShapeError{
			Shape:  append([]int(nil), shape...),
			Reason: fmt.Sprintf("expected 2 or 3 dimensions, got %d", len(shape)),
		}
	}

	pix, err := coerceSamples(samples)
	if err != nil {
		return nil, err
	}
	buf.Pix = pix

	if err := buf.validate(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func coerceSamples(samples any) ([]uint8, error) {
	switch s := samples.(type) {
	case []uint8:
		return append([]uint8(nil), s...), nil
	case []uint16:
		return clampInts(s), nil
	case []int:
		return clampInts(s), nil
	case []int32:
		return clampInts(s), nil
	case []int64:
		return clampInts(s), nil
	case []float32:
		return clampFloats(s), nil
	case []float64:
		return clampFloats(s), nil
	default:
		return nil, &InvalidTypeError{Type: fmt.Sprintf("%T", samples)}
	}
}

func clampInts[T uint16 | int | int32 | int64](in []T) []uint8 {
	out := make([]uint8, len(in))
	for i, v := range in {
		switch {
		case v < 0:
			out[i] = 0
		case v > 255:
			out[i] = 255
		default:
			out[i] = uint8(v)
		}
	}
	return out
}

func clampFloats[T float32 | float64](in []T) []uint8 {
	out := make([]uint8, len(in))
	for i, v := range in {
		f := math.Trunc(float64(v))
		switch {
		case math.IsNaN(f), f < 0:
			out[i] = 0
		case f > 255:
			out[i] = 255
		default:
			out[i] = uint8(f)
		}
	}
	return out
}
