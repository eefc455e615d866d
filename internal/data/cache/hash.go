package cache

import "github.com/cespare/xxhash/v2"

// ContentHash fingerprints a file's content for change detection.
func ContentHash(content string) uint64 {
	return xxhash.Sum64String(content)
}
