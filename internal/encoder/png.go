package encoder

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"sync"
)

// bufferPool recycles zlib and filter buffers between PNG encodes.
// png.Encoder takes a buffer out for the duration of one Encode call, so no
// buffer is ever shared by two concurrent encodes.
type bufferPool struct {
	p sync.Pool
}

func (b *bufferPool) Get() *png.EncoderBuffer {
	buf, _ := b.p.Get().(*png.EncoderBuffer)
	return buf
}

func (b *bufferPool) Put(buf *png.EncoderBuffer) {
	b.p.Put(buf)
}

var sharedPool = &bufferPool{}

// PNGEncoder encodes images to PNG using Go's standard library.
// Encoding is lossless at every compression level.
type PNGEncoder struct {
	enc png.Encoder
}

// NewPNG returns a PNG encoder using the given zlib compression level.
func NewPNG(level png.CompressionLevel) *PNGEncoder {
	return &PNGEncoder{enc: png.Encoder{CompressionLevel: level, BufferPool: sharedPool}}
}

func (e *PNGEncoder) Format() string { return "png" }

func (e *PNGEncoder) Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	if err := e.EncodeTo(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *PNGEncoder) EncodeTo(w io.Writer, img image.Image) error {
	return e.enc.Encode(w, img)
}

var _ Encoder = (*PNGEncoder)(nil)
