package imaging

import "fmt"

// SourceUnavailableError reports that a Source could not be resolved to bytes.
type SourceUnavailableError struct {
	// Source is the Describe() string of the failing source.
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source unavailable: %s: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// DecodeError reports that bytes are not a recognizable raster image.
type DecodeError struct {
	// Detected is the MIME type sniffed from the content, or empty if unknown.
	Detected string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.Detected != "" {
		return fmt.Sprintf("failed to decode image (detected %s): %v", e.Detected, e.Err)
	}
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// UnsupportedShapeError reports a buffer that is not 2-D or 3-D, or whose
// channel count is outside {1, 3, 4}.
type UnsupportedShapeError struct {
	Shape  []int
	Reason string
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("unsupported pixel buffer shape %v: %s", e.Shape, e.Reason)
}

// InvalidTypeError reports a sample type that cannot be coerced to uint8.
type InvalidTypeError struct {
	Type string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("sample type %s cannot be coerced to uint8", e.Type)
}

// EncodingError reports an internal codec failure during a probe or the
// final encode.
type EncodingError struct {
	Quality int
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("failed to encode JPEG at quality %d: %v", e.Quality, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
