package convert

import (
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
)

// Request is one JPEG→PNG conversion. The source is checked when the
// request runs, not when it is built.
type Request struct {
	Source      string
	Destination string
}

// NewRequest builds a request. An empty destination means the source path
// with its extension replaced by .png.
func NewRequest(source, destination string) Request {
	if destination == "" {
		destination = DestinationFor(source)
	}
	return Request{Source: source, Destination: destination}
}

// DestinationFor returns source with its extension swapped for .png.
func DestinationFor(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".png"
}

// Result is the outcome of one Request. It is a success when Err is nil;
// otherwise Err is an *apperrors.Error naming the failure kind.
type Result struct {
	Request
	Width    uint32
	Height   uint32
	Size     int64  // PNG bytes written
	Hash     string // xxhash64 of the PNG bytes
	Duration time.Duration
	Err      error
}

// OK reports whether the conversion succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Kind returns the failure kind, or "" for a success.
func (r Result) Kind() apperrors.Kind {
	if r.Err == nil {
		return ""
	}
	if k := apperrors.KindOf(r.Err); k != "" {
		return k
	}
	return apperrors.KindWriteError
}

// Message returns the failure message, or "" for a success.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Cancelled builds the result recorded for a request that never ran.
func Cancelled(req Request, reason string) Result {
	return Result{
		Request: req,
		Err:     apperrors.Newf(apperrors.KindCancelled, "", "", "%s", reason),
	}
}
