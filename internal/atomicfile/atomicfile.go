// Package atomicfile replaces files so that readers only ever see the old
// or the complete new contents.
package atomicfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// ErrExists is returned when overwriting is disabled and dst exists.
var ErrExists = errors.New("destination exists and overwrite is disabled")

// DefaultMode is the mode of newly created files. Replaced files keep
// their previous mode.
const DefaultMode fs.FileMode = 0o644

// placeMu serializes the check-and-rename fallback of exclusive placement.
var placeMu sync.Mutex

// Write writes data to a temp file next to dst and moves it into place.
// dst only ever holds its previous contents or the complete new file; the
// temp file is removed on every failure path. With overwrite false an
// existing dst is never replaced, even one created while Write runs.
func Write(fsys afero.Fs, dst string, data []byte, overwrite bool) (err error) {
	dir := filepath.Dir(dst)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	mode := DefaultMode
	info, statErr := fsys.Stat(dst)
	switch {
	case statErr == nil:
		if !overwrite {
			return ErrExists
		}
		mode = info.Mode().Perm()
	case !errors.Is(statErr, fs.ErrNotExist):
		return fmt.Errorf("stat destination: %w", statErr)
	}

	tmp, err := afero.TempFile(fsys, dir, filepath.Base(TempPattern(dst)))
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = fsys.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err := fsys.Chmod(tmpPath, mode); err != nil {
		return fmt.Errorf("chmod temporary file: %w", err)
	}

	if !overwrite {
		return placeExclusive(fsys, tmpPath, dst)
	}
	if err := fsys.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("atomic replace: %w", err)
	}
	return nil
}

// placeExclusive moves tmp to dst unless dst exists. On the OS filesystem
// a hard link fails atomically when dst exists; elsewhere, or where links
// are unsupported, the existence check and the rename run under placeMu.
// tmp is gone on success and left for the caller to remove on failure.
func placeExclusive(fsys afero.Fs, tmp, dst string) error {
	if _, ok := fsys.(*afero.OsFs); ok {
		err := os.Link(tmp, dst)
		if err == nil {
			_ = fsys.Remove(tmp)
			return nil
		}
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
	}

	placeMu.Lock()
	defer placeMu.Unlock()

	if _, err := fsys.Stat(dst); err == nil {
		return ErrExists
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat destination: %w", err)
	}
	if err := fsys.Rename(tmp, dst); err != nil {
		return fmt.Errorf("atomic replace: %w", err)
	}
	return nil
}

// TempPattern returns the glob matching temp files Write may leave for dst
// if the process dies mid-write.
func TempPattern(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
}
