package router

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/avlshard/lib/util"
)

// ringToken is one placement on the consistent-hash ring used by
// VirtualNodes and Intelligent.
type ringToken struct {
	hash  uint64
	shard int
}

// buildRing places v replica tokens per shard on a hashed circle and
// returns them sorted by hash ascending, with shard index as the tie
// break (the "lowest ring position" rule the natural-shard lookup and the
// hotspot walk both rely on for determinism).
func buildRing(n, v int, seed uint64) ringSlice {
	ring := make(ringSlice, 0, n*v)
	for s := 0; s < n; s++ {
		for replica := 0; replica < v; replica++ {
			h := util.HashString(fmt.Sprintf("shard-%d-replica-%d", s, replica), seed)
			ring = append(ring, ringToken{hash: uint64(h), shard: s})
		}
	}
	sort.Slice(ring, func(i, j int) bool {
		if ring[i].hash != ring[j].hash {
			return ring[i].hash < ring[j].hash
		}
		return ring[i].shard < ring[j].shard
	})
	return ring
}

// lookup returns the ring index and shard owning h: the first token with
// hash >= h, wrapping to index 0 if h exceeds every token (the ring is a
// circle).
func (ring ringSlice) lookup(h uint64) (idx int, shard int) {
	idx = sort.Search(len(ring), func(i int) bool { return ring[i].hash >= h })
	if idx == len(ring) {
		idx = 0
	}
	return idx, ring[idx].shard
}

// ringSlice is ring.go's own name for []ringToken so lookup can be defined
// as a method without exporting the token type.
type ringSlice []ringToken
