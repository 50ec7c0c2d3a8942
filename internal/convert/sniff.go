package convert

import (
	"bufio"
	"image"
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// soi is the JPEG start-of-image marker.
var soi = [2]byte{0xFF, 0xD8}

// hasSOI reports whether br starts with a JPEG SOI marker without
// consuming anything.
func hasSOI(br *bufio.Reader) (bool, error) {
	head, err := br.Peek(2)
	if err != nil {
		return false, err
	}
	return head[0] == soi[0] && head[1] == soi[1], nil
}

// sniffFormat names the format of a non-JPEG input for error messages.
// It consumes br. The result is only ever used for diagnostics; the input
// is rejected either way.
func sniffFormat(br *bufio.Reader) string {
	_, format, _ := image.DecodeConfig(br)
	if format == "" {
		return "unknown"
	}
	return format
}
