package router

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ValentinKolb/avlshard/lib/util"
)

// Hasher computes a stable, seeded hash for a key. It must be deterministic
// for a given (key, seed) pair and independent of live router state, since
// it underlies Natural(k).
type Hasher[K any] func(key K, seed uint64) uint64

// Ranger maps a key onto an integer domain for the Range strategy
// (shard = ranger(k) mod N). Keys with no natural integer projection fall
// back to a hash, same as defaultHasher, which keeps Range total even
// though it is only genuinely useful for integer-like key types.
type Ranger[K any] func(key K) uint64

// defaultHasher dispatches on the key's dynamic type to pick an
// algorithmically appropriate mixing step: xxhash for strings (mirroring
// the RESP command hashing in the reference store this package is modeled
// on), and the seeded FNV-1a construction over the raw bits for every
// numeric kind constraints.Ordered admits.
func defaultHasher[K any]() Hasher[K] {
	return func(k K, seed uint64) uint64 {
		switch v := any(k).(type) {
		case string:
			return xxhash.Sum64String(v) ^ seed
		case int:
			return uint64(util.HashUint64(uint64(v), seed))
		case int8:
			return uint64(util.HashUint64(uint64(v), seed))
		case int16:
			return uint64(util.HashUint64(uint64(v), seed))
		case int32:
			return uint64(util.HashUint64(uint64(v), seed))
		case int64:
			return uint64(util.HashUint64(uint64(v), seed))
		case uint:
			return uint64(util.HashUint64(uint64(v), seed))
		case uint8:
			return uint64(util.HashUint64(uint64(v), seed))
		case uint16:
			return uint64(util.HashUint64(uint64(v), seed))
		case uint32:
			return uint64(util.HashUint64(uint64(v), seed))
		case uint64:
			return uint64(util.HashUint64(v, seed))
		case uintptr:
			return uint64(util.HashUint64(uint64(v), seed))
		case float32:
			return uint64(util.HashFloat64(float64(v), seed))
		case float64:
			return uint64(util.HashFloat64(v, seed))
		default:
			return uint64(util.HashAny(v, seed))
		}
	}
}

// defaultRanger backs the Range strategy. Integer key kinds map onto their
// own bit pattern and float kinds are truncated toward zero to an integer
// (mod N is applied by the caller); string keys
// have no natural integer projection, so they route through the same
// xxhash step defaultHasher uses for Hash/LoadAware.
func defaultRanger[K any]() Ranger[K] {
	return func(k K) uint64 {
		switch v := any(k).(type) {
		case string:
			return xxhash.Sum64String(v)
		case int:
			return uint64(v)
		case int8:
			return uint64(v)
		case int16:
			return uint64(v)
		case int32:
			return uint64(v)
		case int64:
			return uint64(v)
		case uint:
			return uint64(v)
		case uint8:
			return uint64(v)
		case uint16:
			return uint64(v)
		case uint32:
			return uint64(v)
		case uint64:
			return v
		case uintptr:
			return uint64(v)
		case float32:
			return uint64(int64(v))
		case float64:
			return uint64(int64(v))
		default:
			return uint64(util.HashAny(v, 0))
		}
	}
}
