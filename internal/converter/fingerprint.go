package converter

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"

	"camfeed/internal/filesystem"
	"camfeed/internal/logging"
)

// FingerprintHeadSize is how many leading bytes of a source contribute to its fingerprint.
const FingerprintHeadSize = 64 * 1024

// Fingerprint returns the cache key for the file at path: the hex SHA-256 of the
// first FingerprintHeadSize bytes followed by the decimal byte length.
//
// Files that share both their first 64 KiB and their length share a fingerprint even
// if later bytes differ, and therefore share a cache entry.
func Fingerprint(path string) (string, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s after fingerprinting: %v", path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return FingerprintReader(f, info.Size())
}

// FingerprintReader computes the fingerprint of content read from r whose total
// length is size. Only the first FingerprintHeadSize bytes of r are consumed.
func FingerprintReader(r io.Reader, size int64) (string, error) {
	h := sha256.New()
	if _, err := io.CopyN(h, r, FingerprintHeadSize); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read source head: %w", err)
	}
	h.Write([]byte(strconv.FormatInt(size, 10)))
	return hex.EncodeToString(h.Sum(nil)), nil
}
