package encoder

import (
	"image"
	"io"
)

// Encoder encodes a raster to a specific format.
type Encoder interface {
	// Format returns the output format name ("png").
	Format() string

	// Encode converts the image to bytes. Output must be deterministic
	// for identical input.
	Encode(img image.Image) ([]byte, error)

	// EncodeTo streams the encoded image to w.
	EncodeTo(w io.Writer, img image.Image) error
}
