package cache

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// CompositeKey builds the logical `category:subkey` key.
func CompositeKey(category Category, key string) string {
	return string(category) + ":" + key
}

// storageKey derives the hashed storage key for a logical key. The hash
// must stay stable across releases or cached entries become unreachable.
func storageKey(prefix, logicalKey string) string {
	return fmt.Sprintf("%s%016x", prefix, xxhash.Sum64String(logicalKey))
}

// HashBytes returns the hex fingerprint of a payload. Used for entry
// content hashes and deduplication.
func HashBytes(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// HashString returns the hex fingerprint of a string.
func HashString(s string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(s))
}

// HashFile returns the hex fingerprint of a file's contents. When the
// file cannot be read, it falls back to hashing the path string so
// callers still get a stable, best-effort identity.
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return HashString(path)
	}
	return HashBytes(data)
}
