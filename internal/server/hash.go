// hash.go - SHA-256 integrity metadata for converted artifacts.
package server

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// artifactDigest hashes f from the start and rewinds it, returning the hex
// SHA-256 and the number of bytes read.
func artifactDigest(f io.ReadSeeker) (string, int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", 0, fmt.Errorf("digest: seek: %w", err)
	}
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", n, fmt.Errorf("digest: read: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", n, fmt.Errorf("digest: rewind: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))
	if len(sum) != 64 {
		return "", n, fmt.Errorf("digest: unexpected length %d", len(sum))
	}
	return sum, n, nil
}

// etag is the strong validator for an artifact with the given digest.
func etag(digest string) string {
	return `"sha256-` + digest + `"`
}

