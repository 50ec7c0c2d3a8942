// Package errors defines the failure taxonomy shared by the resolver, the
// conversion engine and the batch coordinator.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. The zero value means "unclassified".
type Kind string

const (
	KindInvalidPath          Kind = "InvalidPath"
	KindNotFound             Kind = "NotFound"
	KindPermissionDenied     Kind = "PermissionDenied"
	KindSourceUnavailable    Kind = "SourceUnavailable"
	KindDecodeError          Kind = "DecodeError"
	KindWriteError           Kind = "WriteError"
	KindCancelled            Kind = "Cancelled"
	KindInvalidConfiguration Kind = "InvalidConfiguration"
)

// Error carries a Kind together with the operation and path that failed.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return string(e.Kind)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Sentinels only
// set Kind, so errors.Is(err, ErrNotFound) matches any NotFound failure.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Path == "" && t.Err == nil
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidPath          = &Error{Kind: KindInvalidPath}
	ErrNotFound             = &Error{Kind: KindNotFound}
	ErrPermissionDenied     = &Error{Kind: KindPermissionDenied}
	ErrSourceUnavailable    = &Error{Kind: KindSourceUnavailable}
	ErrDecodeError          = &Error{Kind: KindDecodeError}
	ErrWriteError           = &Error{Kind: KindWriteError}
	ErrCancelled            = &Error{Kind: KindCancelled}
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
)

// Wrap builds an *Error of the given kind around err.
func Wrap(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Newf builds an *Error whose cause is a formatted message.
func Newf(kind Kind, op, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
