package common

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/google/uuid"
)

// NewID generates a unique id with the given resource prefix.
// Format: prefix_<uuid>
func NewID(prefix string) string {
	return prefix + "_" + uuid.New().String()
}

// SHA1Hex returns the lowercase hex SHA1 digest of the given string, used for
// stable job_key derivation in the URL normalizer.
func SHA1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
