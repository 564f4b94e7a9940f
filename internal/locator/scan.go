package locator

import (
	"fmt"
	"os"
	"path/filepath"

	"lmrun/internal/common/fsutil"
)

// BlobsDir is the content-addressed subdirectory of a registry root.
const BlobsDir = "blobs"

// scanLargest walks dir (non-recursively) and returns the largest regular
// file starting with magic. Ties keep the first file in directory order.
// Returns "" when nothing matches.
func scanLargest(dir string, magic []byte) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read dir: %w", err)
	}
	var (
		best     string
		bestSize int64 = -1
	)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		fi, err := fsutil.RegularFile(p)
		if err != nil {
			continue
		}
		ok, err := fsutil.HasMagic(p, magic)
		if err != nil || !ok {
			continue
		}
		if fi.Size() > bestSize {
			best, bestSize = p, fi.Size()
		}
	}
	return best, nil
}
