package imaging

import (
	"bytes"
	"context"
	"image"
)

// ImageInfo contains metadata about an encoded image.
//
// This struct provides essential information about an image without requiring
// the caller to analyze the pixel data directly.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that accepted the data: "png", "jpeg", "gif",
	// "bmp", "tiff" or "webp". Detection is based on file contents, not on
	// the file name.
	Format string `json:"format"`

	// MIME is the sniffed content type, e.g. "image/png". May be empty.
	MIME string `json:"mime,omitempty"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image has an alpha (transparency) channel.
	HasAlpha bool `json:"has_alpha"`

	// Channels is the channel count the image decodes to: 1, 3 or 4.
	Channels int `json:"channels"`

	// SizeBytes is the size of the encoded data in bytes.
	SizeBytes int64 `json:"size_bytes"`
}

// Inspect decodes data and returns comprehensive metadata about it.
//
// Parameters:
//   - data: Encoded image bytes in any registered raster format.
//
// Returns:
//   - *ImageInfo: Metadata about the image.
//   - error: *DecodeError if the data is not a recognizable raster image.
//
// # Color Depth Detection
//
// Color depth is determined by the Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func Inspect(data []byte) (*ImageInfo, error) {
	dec, err := Decode(data)
	if err != nil {
		return nil, err
	}

	colorDepth := "8-bit"
	switch dec.Image.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}

	channels := channelsOf(dec.Image)
	bounds := dec.Image.Bounds()
	return &ImageInfo{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     dec.Format,
		MIME:       dec.MIME,
		ColorDepth: colorDepth,
		HasAlpha:   channels == 4,
		Channels:   channels,
		SizeBytes:  int64(len(data)),
	}, nil
}

// InspectSource loads a Source and returns its metadata.
func InspectSource(ctx context.Context, src Source) (*ImageInfo, error) {
	data, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Inspect(data)
}

// DimensionsResult contains the width and height of an image.
//
// This is a lightweight result type for when only dimensions are needed,
// without the additional metadata provided by ImageInfo.
type DimensionsResult struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an encoded image without decoding
// its pixel data. Only the header is parsed.
//
// Returns *DecodeError if no registered decoder recognizes the header.
func GetDimensions(data []byte) (*DimensionsResult, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Detected: sniff(data), Err: err}
	}

	return &DimensionsResult{
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}
