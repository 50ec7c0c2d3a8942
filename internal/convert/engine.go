// Package convert performs single JPEG→PNG conversions: open the source,
// decode it strictly as JPEG, re-encode losslessly as PNG and replace the
// destination atomically.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"time"

	"github.com/AnyUserName/jpeg2png/internal/atomicfile"
	"github.com/AnyUserName/jpeg2png/internal/encoder"
	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/AnyUserName/jpeg2png/internal/hasher"
	"github.com/AnyUserName/jpeg2png/internal/profile"
	"github.com/AnyUserName/jpeg2png/internal/resolver"
	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
)

// readBufferSize sizes the buffered reader in front of the JPEG decoder.
const readBufferSize = 64 << 10

// Options configures an Engine.
type Options struct {
	// Fs is the filesystem for both sources and destinations. Nil means
	// the OS filesystem.
	Fs afero.Fs
	// Profile selects the PNG compression level.
	Profile profile.Profile
	// Encoder overrides the PNG encoder built from Profile.
	Encoder encoder.Encoder
	// Overwrite allows replacing an existing destination.
	Overwrite bool
	Logger    *slog.Logger
}

// Engine converts one request at a time per call. It is safe for
// concurrent use; every call owns its own buffers and raster.
type Engine struct {
	fs        afero.Fs
	resolver  *resolver.Resolver
	enc       encoder.Encoder
	overwrite bool
	log       *slog.Logger
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Profile.Name == "" {
		opts.Profile = profile.Get(profile.DefaultName)
	}
	if opts.Encoder == nil {
		opts.Encoder = encoder.NewPNG(opts.Profile.Compression)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		fs:        opts.Fs,
		resolver:  resolver.New(opts.Fs),
		enc:       opts.Encoder,
		overwrite: opts.Overwrite,
		log:       opts.Logger,
	}
}

type finishKey struct{}

// WithFinishContext returns ctx carrying finish, the context that still
// governs a conversion once its source is decoded. ctx is checked before
// open and before decode; finish alone is checked before write. Without
// it, ctx governs every step.
func WithFinishContext(ctx, finish context.Context) context.Context {
	return context.WithValue(ctx, finishKey{}, finish)
}

func finishContext(ctx context.Context) context.Context {
	if f, ok := ctx.Value(finishKey{}).(context.Context); ok {
		return f
	}
	return ctx
}

// Convert runs req to completion and always returns exactly one Result.
// ctx is checked before open, before decode and before write (see
// WithFinishContext); a cancelled ctx yields a Cancelled failure and leaves
// the destination untouched.
func (e *Engine) Convert(ctx context.Context, req Request) Result {
	start := time.Now()
	res := e.convert(ctx, req)
	res.Request = req
	res.Duration = time.Since(start)

	if res.Err != nil {
		e.log.Debug("conversion failed",
			"source", req.Source, "kind", res.Kind(), "error", res.Err)
	} else {
		e.log.Debug("conversion done",
			"source", req.Source, "destination", req.Destination,
			"format", e.enc.Format(), "width", res.Width, "height", res.Height,
			"bytes", res.Size, "elapsed", res.Duration)
	}
	return res
}

func (e *Engine) convert(ctx context.Context, req Request) Result {
	if err := checkpoint(ctx, "before open"); err != nil {
		return Result{Err: err}
	}

	rc, err := e.resolver.Open(req.Source)
	if err != nil {
		return Result{Err: apperrors.Wrap(apperrors.KindSourceUnavailable, "", "", err)}
	}
	defer rc.Close()

	if err := checkpoint(ctx, "before decode"); err != nil {
		return Result{Err: err}
	}

	img, err := decodeJPEG(rc)
	if err != nil {
		return Result{Err: err}
	}
	// Release the source before touching the destination, which may be
	// the same path.
	rc.Close()

	bounds := img.Bounds()
	raster := normalize(img)

	data, err := e.enc.Encode(raster)
	if err != nil {
		return Result{Err: apperrors.Wrap(apperrors.KindWriteError, "encode", "", err)}
	}

	if err := checkpoint(finishContext(ctx), "before write"); err != nil {
		return Result{Err: err}
	}

	if err := atomicfile.Write(e.fs, req.Destination, data, e.overwrite); err != nil {
		return Result{Err: apperrors.Wrap(apperrors.KindWriteError, "write", req.Destination, err)}
	}

	return Result{
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
		Size:   int64(len(data)),
		Hash:   hasher.ContentHash(data),
	}
}

// decodeJPEG accepts only input starting with the JPEG SOI marker.
func decodeJPEG(r io.Reader) (image.Image, error) {
	br := bufio.NewReaderSize(r, readBufferSize)

	ok, err := hasSOI(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, apperrors.Newf(apperrors.KindDecodeError, "decode", "", "input too short to be a JPEG")
		}
		return nil, apperrors.Wrap(apperrors.KindDecodeError, "decode", "", err)
	}
	if !ok {
		return nil, apperrors.Newf(apperrors.KindDecodeError, "decode", "",
			"missing JPEG start-of-image marker (detected format: %s)", sniffFormat(br))
	}

	img, err := jpeg.Decode(br)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeError, "decode", "", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, apperrors.Newf(apperrors.KindDecodeError, "decode", "", "empty raster %dx%d", b.Dx(), b.Dy())
	}
	return img, nil
}

// normalize returns a raster the PNG encoder writes through a fast path.
// Gray stays single-channel; YCbCr and CMYK are expanded to NRGBA with
// identical 8-bit RGB values.
func normalize(img image.Image) image.Image {
	switch img.(type) {
	case *image.Gray, *image.NRGBA, *image.RGBA:
		return img
	default:
		return imaging.Clone(img)
	}
}

func checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.KindCancelled, "", "", fmt.Errorf("cancelled %s: %w", stage, err))
	}
	return nil
}
