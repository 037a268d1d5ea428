package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// ErrUnrecognizedFormat is wrapped by a DecodeError when the bytes match no
// registered raster format.
var ErrUnrecognizedFormat = errors.New("unrecognized raster format")

// Decoded is a decoded image together with the format it was read from.
type Decoded struct {
	Image image.Image

	// Format is the registered format name: "jpeg", "png", "gif", "bmp",
	// "tiff" or "webp".
	Format string

	// MIME is the sniffed content type, e.g. "image/png". May be empty when
	// the sniffer does not know the format but a decoder accepted it.
	MIME string
}

// sniff returns the MIME type detected from the leading bytes, or "" if unknown.
func sniff(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Decode turns encoded bytes into an image.
//
// Content that is positively identified as a non-image type (PDF, archive,
// video, ...) is rejected before any decoder runs. Content the sniffer does not
// know is still offered to the registered decoders. All failures are reported
// as *DecodeError; decoding is never retried.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Err: errors.New("empty input")}
	}

	mime := sniff(data)
	if mime != "" && !filetype.IsImage(data) {
		return nil, &DecodeError{Detected: mime, Err: ErrUnrecognizedFormat}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			err = ErrUnrecognizedFormat
		}
		return nil, &DecodeError{Detected: mime, Err: err}
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Detected: mime, Err: fmt.Errorf("invalid image dimensions %dx%d", b.Dx(), b.Dy())}
	}

	return &Decoded{Image: img, Format: format, MIME: mime}, nil
}
