// Package contenthash fingerprints raw text for duplicate detection.
package contenthash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the SHA-256 digest of content as lowercase hex.
// Identical input always yields identical output.
func Sum(content string) string {
	digest := sha256.Sum256([]byte(content))
	return hex.EncodeToString(digest[:])
}
