package imaging

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// AlphaMode selects how Normalize removes an alpha channel.
type AlphaMode int

const (
	// AlphaDrop discards the alpha samples and keeps the stored color values
	// unchanged, even for transparent pixels.
	AlphaDrop AlphaMode = iota

	// AlphaComposite blends each pixel over a solid background color
	// according to its alpha before the alpha channel is removed.
	AlphaComposite
)

func (m AlphaMode) String() string {
	switch m {
	case AlphaDrop:
		return "drop"
	case AlphaComposite:
		return "composite"
	}
	return fmt.Sprintf("AlphaMode(%d)", int(m))
}

// ParseAlphaMode parses "drop" or "composite". The empty string is "drop".
func ParseAlphaMode(s string) (AlphaMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "drop":
		return AlphaDrop, nil
	case "composite":
		return AlphaComposite, nil
	}
	return AlphaDrop, fmt.Errorf("unknown alpha mode %q (want drop or composite)", s)
}

// NormalizeOptions controls alpha handling in Normalize. The zero value drops
// alpha.
type NormalizeOptions struct {
	Alpha AlphaMode

	// Background is used by AlphaComposite. The zero value is black.
	Background colorful.Color
}

// ParseBackground parses a "#RRGGBB" background color.
func ParseBackground(hex string) (colorful.Color, error) {
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("invalid background color %q: %w", hex, err)
	}
	return c, nil
}

// Normalize enforces the working layout used by the encoder: one channel for
// grayscale, three for color, 8-bit samples, RGB order.
//
// Four-channel buffers lose their alpha channel. Under AlphaDrop the color
// samples of transparent pixels are kept as stored, so content hidden behind
// zero alpha becomes visible. One and three channel buffers are returned as
// is. The input buffer is never modified.
func Normalize(buf *PixelBuffer, opts NormalizeOptions) (*PixelBuffer, error) {
	if buf == nil {
		return nil, &UnsupportedShapeError{Reason: "nil buffer"}
	}
	if err := buf.validate(); err != nil {
		return nil, err
	}
	if buf.Channels != 4 {
		return buf, nil
	}

	out := &PixelBuffer{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: 3,
		Pix:      make([]uint8, buf.Width*buf.Height*3),
	}

	switch opts.Alpha {
	case AlphaComposite:
		bg := opts.Background
		for i, j := 0, 0; i < len(buf.Pix); i, j = i+4, j+3 {
			a := buf.Pix[i+3]
			switch a {
			case 0xff:
				copy(out.Pix[j:j+3], buf.Pix[i:i+3])
			case 0:
				out.Pix[j+0], out.Pix[j+1], out.Pix[j+2] = bg.RGB255()
			default:
				fg := colorful.Color{
					R: float64(buf.Pix[i+0]) / 255,
					G: float64(buf.Pix[i+1]) / 255,
					B: float64(buf.Pix[i+2]) / 255,
				}
				out.Pix[j+0], out.Pix[j+1], out.Pix[j+2] = bg.BlendRgb(fg, float64(a)/255).Clamped().RGB255()
			}
		}
	default:
		for i, j := 0, 0; i < len(buf.Pix); i, j = i+4, j+3 {
			copy(out.Pix[j:j+3], buf.Pix[i:i+3])
		}
	}

	return out, nil
}
