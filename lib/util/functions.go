package util

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// --------------------------------------------------------------------------
// General Utility Functions
// --------------------------------------------------------------------------

// GenerateSeed creates a more robust random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fallback mit aktueller Zeit, nur im äußersten Notfall
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// UintKey is an efficient key type based on uint64 for internal hash representation
type UintKey uint64

// HashString generates a hash value for a string with a seed
// This function uses the FNV-1a hash algorithm, which is fast and has good distribution
func HashString(s string, seed uint64) UintKey {

	// FNV-1a hash with seed incorporation
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	// Start with the offset combined with our seed for uniqueness
	hash := uint64(offset64) ^ seed

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return UintKey(hash)
}

// HashUint64 generates a hash value for a raw uint64 with a seed.
// It runs the same FNV-1a construction as HashString over the value's
// 8 little-endian bytes, so integer and string keys go through an
// algorithmically identical mixing step.
func HashUint64(v uint64, seed uint64) UintKey {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)

	hash := uint64(offset64) ^ seed
	for _, b := range buf {
		hash ^= uint64(b)
		hash *= prime64
	}

	return UintKey(hash)
}

// HashFloat64 hashes a float64 with a seed by mixing its IEEE-754 bit
// pattern through HashUint64.
func HashFloat64(v float64, seed uint64) UintKey {
	return HashUint64(math.Float64bits(v), seed)
}

// HashAny is a total fallback hash for key kinds not covered by
// HashString/HashUint64/HashFloat64. router.defaultHasher reaches it for
// defined key types (such as `type ID int`), whose dynamic type matches none
// of its cases for the built-in numeric and string types.
func HashAny(v any, seed uint64) UintKey {
	return HashString(fmt.Sprintf("%v", v), seed)
}
