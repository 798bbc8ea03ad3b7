package cache

import "github.com/cespare/xxhash/v2"

// Hash returns the non-zero 32-bit digest of raw. Zero marks an empty slot,
// so a zero result is remapped to 1.
func Hash(raw string) uint32 {
	sum := xxhash.Sum64String(raw)
	h := uint32(sum) ^ uint32(sum>>32)
	if h == 0 {
		return 1
	}
	return h
}
