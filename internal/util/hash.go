package util

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// GenerateHash derives a short stable id from a repository, report text and
// creation time.
func GenerateHash(repository, text string, created time.Time) string {
	hasher := sha256.New()
	hasher.Write([]byte(repository))
	hasher.Write([]byte{0})
	hasher.Write([]byte(text))
	hasher.Write([]byte(created.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(hasher.Sum(nil))[:16] // Use first 16 chars of the hash
}
