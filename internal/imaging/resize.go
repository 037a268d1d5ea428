package imaging

import (
	"github.com/disintegration/imaging"
)

// ScaledSize returns the integer dimensions for a linear scale factor,
// truncating like the pixel grid does and never going below 1x1.
func ScaledSize(width, height int, scale float64) (int, int) {
	w := int(float64(width) * scale)
	h := int(float64(height) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Resize returns a new buffer with the given dimensions, produced with an
// area-averaging (box) filter. The channel count is preserved and src is not
// modified.
func Resize(src *PixelBuffer, width, height int) *PixelBuffer {
	if width == src.Width && height == src.Height {
		return &PixelBuffer{
			Width:    src.Width,
			Height:   src.Height,
			Channels: src.Channels,
			Pix:      append([]uint8(nil), src.Pix...),
		}
	}

	dst := imaging.Resize(src.Image(), width, height, imaging.Box)
	return fromNRGBA(dst, src.Channels)
}
