// Package imaging provides the pixel-level building blocks for budget
// compression: loading image bytes, decoding them, holding pixels in a
// PixelBuffer, normalizing channels, area-averaging resize and JPEG encoding.
//
// # Pixel Buffers
//
// A PixelBuffer is a row-major array of 8-bit samples with 1 (gray),
// 3 (RGB) or 4 (RGBA) channels per pixel. Channel order is always R, G, B
// and alpha, if present, is last. Buffers built from arbitrary numeric
// samples via FromSamples are truncated and clamped into 0-255.
//
// # Sources
//
// Image bytes come from a Source: in-memory bytes, a file path or an HTTP
// URL. Only URLSource honours its context; the others complete immediately.
//
// # Alpha
//
// JPEG has no alpha channel. Normalize either drops alpha (the default) or
// composites the image over a solid background colour.
//
// # Error Handling
//
// Failures are reported with typed errors so callers can map them to
// protocol-specific codes:
//   - SourceUnavailableError: bytes could not be read or fetched
//   - DecodeError: bytes are not a supported image
//   - UnsupportedShapeError: sample shape is not 2-D or 3-D with 1, 3 or 4 channels
//   - InvalidTypeError: samples are not a numeric slice
//   - EncodingError: the JPEG encoder rejected the buffer or quality
//
// # Thread Safety
//
// Every function here is stateless. PixelBuffers are not copied on read, so
// callers must not mutate a buffer another goroutine is using.
package imaging
