package report

import (
	"fmt"
	"image/png"
	"path/filepath"

	"github.com/AnyUserName/jpeg2png/internal/hasher"
	"github.com/spf13/afero"
)

// Validate checks a report against the files on fsys. Relative
// destinations are resolved against baseDir. It returns one message per
// problem; an empty slice means the report is consistent.
func Validate(fsys afero.Fs, r *Report, baseDir string) []string {
	var errs []string

	if r.Version != SupportedVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}

	seen := map[string]bool{}
	for i, it := range r.Items {
		if it.Source == "" {
			errs = append(errs, fmt.Sprintf("item[%d]: missing source", i))
		}
		if it.Destination == "" {
			errs = append(errs, fmt.Sprintf("item[%d]: missing destination", i))
			continue
		}

		switch it.Status {
		case StatusOK:
			// Failed items may name a destination another item claimed.
			if seen[it.Destination] {
				errs = append(errs, fmt.Sprintf("item[%d]: duplicate destination %q", i, it.Destination))
			}
			seen[it.Destination] = true
			errs = append(errs, validateOutput(fsys, i, it, baseDir)...)
		case StatusFailed, StatusCancelled:
			if it.ErrorKind == "" {
				errs = append(errs, fmt.Sprintf("item[%d]: %s without error kind", i, it.Status))
			}
		default:
			errs = append(errs, fmt.Sprintf("item[%d]: unknown status %q", i, it.Status))
		}
	}

	want := r.Stats
	r2 := *r
	r2.ComputeStats()
	if r2.Stats != want {
		errs = append(errs, fmt.Sprintf("stats mismatch: recorded %+v, computed %+v", want, r2.Stats))
	}

	return errs
}

func validateOutput(fsys afero.Fs, i int, it Item, baseDir string) []string {
	var errs []string
	path := it.Destination
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	if it.Width == 0 || it.Height == 0 {
		errs = append(errs, fmt.Sprintf("item[%d]: invalid dimensions %dx%d", i, it.Width, it.Height))
	}

	f, err := fsys.Open(path)
	if err != nil {
		return append(errs, fmt.Sprintf("item[%d]: file not found: %s", i, it.Destination))
	}
	cfg, err := png.DecodeConfig(f)
	f.Close()
	if err != nil {
		return append(errs, fmt.Sprintf("item[%d]: %s is not a valid PNG: %v", i, it.Destination, err))
	}
	if uint32(cfg.Width) != it.Width || uint32(cfg.Height) != it.Height {
		errs = append(errs, fmt.Sprintf("item[%d]: dimensions mismatch: report=%dx%d, file=%dx%d",
			i, it.Width, it.Height, cfg.Width, cfg.Height))
	}

	sum, size, err := hasher.FileHash(fsys, path)
	if err != nil {
		return append(errs, fmt.Sprintf("item[%d]: %v", i, err))
	}
	if it.Size > 0 && size != it.Size {
		errs = append(errs, fmt.Sprintf("item[%d]: size mismatch: report=%d, disk=%d", i, it.Size, size))
	}
	if it.Hash != "" && sum != it.Hash {
		errs = append(errs, fmt.Sprintf("item[%d]: hash mismatch: report=%s, disk=%s", i, it.Hash, sum))
	}
	return errs
}
