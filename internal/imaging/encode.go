package imaging

import (
	"bytes"
	"errors"

	"github.com/disintegration/imaging"
)

// EncodeJPEG encodes a normalized buffer as baseline JPEG at the given
// quality (1-100). Output is deterministic for identical inputs.
//
// Single-channel buffers produce grayscale JPEGs. Buffers that still carry
// alpha are rejected; run Normalize first.
func EncodeJPEG(buf *PixelBuffer, quality int) ([]byte, error) {
	if quality < 1 || quality > 100 {
		return nil, &EncodingError{Quality: quality, Err: errors.New("quality must be in [1, 100]")}
	}
	if buf == nil || buf.Channels == 4 {
		return nil, &EncodingError{Quality: quality, Err: errors.New("buffer is not normalized")}
	}
	if err := buf.validate(); err != nil {
		return nil, &EncodingError{Quality: quality, Err: err}
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, buf.Image(), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, &EncodingError{Quality: quality, Err: err}
	}
	if out.Len() == 0 {
		return nil, &EncodingError{Quality: quality, Err: errors.New("encoder produced no output")}
	}
	return out.Bytes(), nil
}

// SizeKB converts a byte count to kilobytes (1 KB = 1024 bytes).
func SizeKB(data []byte) float64 {
	return float64(len(data)) / 1024
}
