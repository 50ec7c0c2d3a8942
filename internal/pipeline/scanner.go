package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/AnyUserName/jpeg2png/internal/convert"
	"github.com/AnyUserName/jpeg2png/internal/resolver"
	"github.com/spf13/afero"
)

// Source represents a discovered JPEG file.
type Source struct {
	// Path is the path to the file on disk.
	Path string
	// RelPath is the path relative to the scanned directory.
	RelPath string
	// Size is the file size in bytes.
	Size int64
}

// jpegExtensions lists recognized JPEG file extensions.
var jpegExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".jpe":  true,
	".jfif": true,
}

// IsJPEGName reports whether path has a JPEG extension (case-insensitive).
func IsJPEGName(path string) bool {
	return jpegExtensions[strings.ToLower(filepath.Ext(path))]
}

// JPEGExtensions returns the recognized extensions in lower and upper case,
// sorted, for matchers that compare case-sensitively.
func JPEGExtensions() []string {
	exts := make([]string, 0, 2*len(jpegExtensions))
	for ext := range jpegExtensions {
		exts = append(exts, ext, strings.ToUpper(ext))
	}
	sort.Strings(exts)
	return exts
}

// ScanJPEGs walks root and returns every JPEG-named file, skipping hidden
// directories. Results are in lexical walk order.
func ScanJPEGs(fsys afero.Fs, root string) ([]Source, error) {
	var sources []Source

	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			// Skip hidden directories.
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !IsJPEGName(path) {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, Source{Path: path, RelPath: relPath, Size: info.Size()})
		return nil
	})

	return sources, err
}

// Plan turns command-line arguments into requests. Each argument is a file,
// a file:// URI or a directory; directories are scanned recursively. With
// outDir set, outputs go there (mirroring the layout under a scanned
// directory); otherwise each PNG lands next to its source.
//
// Missing or unreadable files still become requests so that they are
// reported per item.
func Plan(fsys afero.Fs, args []string, outDir string) ([]convert.Request, error) {
	var reqs []convert.Request

	for _, arg := range args {
		path, err := resolver.Clean(arg)
		if err != nil {
			reqs = append(reqs, convert.Request{Source: arg, Destination: destination(arg, arg, outDir)})
			continue
		}

		info, err := fsys.Stat(path)
		if err != nil || !info.IsDir() {
			reqs = append(reqs, convert.Request{Source: arg, Destination: destination(path, filepath.Base(path), outDir)})
			continue
		}

		sources, err := ScanJPEGs(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		for _, s := range sources {
			reqs = append(reqs, convert.Request{Source: s.Path, Destination: destination(s.Path, s.RelPath, outDir)})
		}
	}

	return reqs, nil
}

func destination(path, rel, outDir string) string {
	if outDir == "" {
		return convert.DestinationFor(path)
	}
	return filepath.Join(outDir, convert.DestinationFor(rel))
}
