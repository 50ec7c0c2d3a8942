package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
)

// HexLen is the length of a full xxHash64 hex digest.
const HexLen = 16

// ContentHash computes the xxHash64 of encoded output and returns it as
// 16 lowercase hex chars. Reports use it to prove two runs wrote the same
// bytes.
func ContentHash(data []byte) string {
	return format(xxhash.Sum64(data))
}

// ReaderHash computes the xxHash64 of everything read from r.
func ReaderHash(r io.Reader) (string, int64, error) {
	h := xxhash.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	return format(h.Sum64()), n, nil
}

// FileHash hashes the file at path on fsys and returns its size too.
func FileHash(fsys afero.Fs, path string) (string, int64, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	sum, n, err := ReaderHash(f)
	if err != nil {
		return "", n, fmt.Errorf("hash %s: %w", path, err)
	}
	return sum, n, nil
}

func format(v uint64) string {
	return hex.EncodeToString(binary.BigEndian.AppendUint64(nil, v))
}
