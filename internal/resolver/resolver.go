// Package resolver maps source references (plain paths or file:// URIs) to
// readable byte streams.
package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"path/filepath"
	"strings"

	apperrors "github.com/AnyUserName/jpeg2png/internal/errors"
	"github.com/spf13/afero"
)

// Resolver opens sources on a filesystem. It holds no state besides the
// filesystem and is safe for concurrent use.
type Resolver struct {
	fs afero.Fs
}

// New returns a Resolver over fsys. A nil fsys means the OS filesystem.
func New(fsys afero.Fs) *Resolver {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Resolver{fs: fsys}
}

// Clean validates ref and returns the filesystem path it names.
// Accepted forms are plain paths and file:// URIs.
func Clean(ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", apperrors.Newf(apperrors.KindInvalidPath, "resolve", ref, "empty path")
	}
	if strings.ContainsRune(ref, 0) {
		return "", apperrors.Newf(apperrors.KindInvalidPath, "resolve", ref, "path contains NUL byte")
	}

	if i := strings.Index(ref, "://"); i > 0 && !strings.ContainsAny(ref[:i], `/\`) {
		u, err := url.Parse(ref)
		if err != nil {
			return "", apperrors.Wrap(apperrors.KindInvalidPath, "resolve", ref, err)
		}
		if !strings.EqualFold(u.Scheme, "file") {
			return "", apperrors.Newf(apperrors.KindInvalidPath, "resolve", ref, "unsupported scheme %q", u.Scheme)
		}
		if u.Host != "" && u.Host != "localhost" {
			return "", apperrors.Newf(apperrors.KindInvalidPath, "resolve", ref, "remote host %q not supported", u.Host)
		}
		if u.Path == "" {
			return "", apperrors.Newf(apperrors.KindInvalidPath, "resolve", ref, "empty path in URI")
		}
		return filepath.Clean(filepath.FromSlash(u.Path)), nil
	}

	return filepath.Clean(ref), nil
}

// Open returns a reader for the regular file named by ref.
func (r *Resolver) Open(ref string) (io.ReadCloser, error) {
	path, err := Clean(ref)
	if err != nil {
		return nil, err
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return nil, classify(path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classify(path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, apperrors.Newf(apperrors.KindNotFound, "open", path, "is a directory")
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, apperrors.Newf(apperrors.KindNotFound, "open", path, "not a regular file (%s)", info.Mode().Type())
	}
	return f, nil
}

func classify(path string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.Wrap(apperrors.KindNotFound, "open", path, err)
	case errors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(apperrors.KindPermissionDenied, "open", path, err)
	case errors.Is(err, fs.ErrInvalid):
		return apperrors.Wrap(apperrors.KindInvalidPath, "open", path, err)
	default:
		return apperrors.Wrap(apperrors.KindNotFound, "open", path, fmt.Errorf("unresolvable: %w", err))
	}
}
