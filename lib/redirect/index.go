package redirect

import (
	"sync"
	"sync/atomic"
	"unsafe"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/ValentinKolb/avlshard/lib/util"
)

type eventKind uint8

const (
	eventLookup eventKind = iota
	eventHit
)

type event struct {
	kind eventKind
}

// Index records, for every key currently diverted away from its natural
// shard, which shard actually holds it. It is safe for concurrent use: the
// map itself is guarded by a read/write lock, scoped to the index's own
// operations and never held across a shard acquisition.
type Index[K comparable] struct {
	mu        sync.RWMutex
	redirects map[K]int

	totalRedirects atomic.Int64
	lookups        atomic.Int64
	hits           atomic.Int64

	events      *util.LockFreeMPSC[event]
	registry    gometrics.Registry
	lookupMeter gometrics.Meter
	hitMeter    gometrics.Meter
}

// New creates an empty Index.
func New[K comparable]() *Index[K] {
	idx := &Index[K]{
		redirects: make(map[K]int),
		events:    util.NewLockFreeMPSC[event](),
		registry:  gometrics.NewRegistry(),
	}
	idx.lookupMeter = gometrics.GetOrRegisterMeter("redirect.lookups", idx.registry)
	idx.hitMeter = gometrics.GetOrRegisterMeter("redirect.hits", idx.registry)
	go idx.reportLoop()
	return idx
}

func (idx *Index[K]) reportLoop() {
	for ev := range idx.events.Recv() {
		switch ev.kind {
		case eventLookup:
			idx.lookupMeter.Mark(1)
		case eventHit:
			idx.hitMeter.Mark(1)
		}
	}
}

// Close stops the background metrics reporter. Safe to skip for an Index
// that lives for the process's lifetime.
func (idx *Index[K]) Close() {
	idx.events.Close()
}

// RecordRedirect installs key -> actual, unless natural == actual (no
// diversion occurred, so nothing to record). Writer-exclusive.
func (idx *Index[K]) RecordRedirect(key K, natural, actual int) {
	if natural == actual {
		return
	}
	idx.mu.Lock()
	idx.redirects[key] = actual
	idx.mu.Unlock()
	idx.totalRedirects.Add(1)
}

// Lookup returns the shard key was diverted to, and whether it was
// diverted at all. Reader-shared.
func (idx *Index[K]) Lookup(key K) (shard int, ok bool) {
	idx.lookups.Add(1)
	idx.events.Push(&event{kind: eventLookup})

	idx.mu.RLock()
	shard, ok = idx.redirects[key]
	idx.mu.RUnlock()

	if ok {
		idx.hits.Add(1)
		idx.events.Push(&event{kind: eventHit})
	}
	return shard, ok
}

// Remove deletes any redirect entry for key. Called on successful element
// removal from the store.
func (idx *Index[K]) Remove(key K) {
	idx.mu.Lock()
	delete(idx.redirects, key)
	idx.mu.Unlock()
}

// GCExpired removes every entry whose natural shard (computed by natural)
// has reconverged with its recorded actual shard, and returns the count
// removed.
func (idx *Index[K]) GCExpired(natural func(K) int) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	removed := 0
	for k, actual := range idx.redirects {
		if natural(k) == actual {
			delete(idx.redirects, k)
			removed++
		}
	}
	return removed
}

// Clear empties the index and resets its statistics counters. A testing
// aid.
func (idx *Index[K]) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.redirects = make(map[K]int)
	idx.totalRedirects.Store(0)
	idx.lookups.Store(0)
	idx.hits.Store(0)
}

// Size returns the number of keys currently diverted.
func (idx *Index[K]) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.redirects)
}

// Stats is a point-in-time snapshot of the index's activity counters.
type Stats struct {
	TotalRedirects int64
	Lookups        int64
	Hits           int64
	HitRate        float64
	IndexSize      int
}

// Stats returns a snapshot of the index's counters.
func (idx *Index[K]) Stats() Stats {
	idx.mu.RLock()
	size := len(idx.redirects)
	idx.mu.RUnlock()

	lookups := idx.lookups.Load()
	hits := idx.hits.Load()

	var hitRate float64
	if lookups > 0 {
		hitRate = float64(hits) * 100.0 / float64(lookups)
	}

	return Stats{
		TotalRedirects: idx.totalRedirects.Load(),
		Lookups:        lookups,
		Hits:           hits,
		HitRate:        hitRate,
		IndexSize:      size,
	}
}

// MemoryBytes estimates the index's memory overhead: one key plus one
// shard id plus a fixed per-entry hash-table overhead, per entry.
func (idx *Index[K]) MemoryBytes() int64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var zero K
	const shardIDSize = 8
	const hashTableOverhead = 16
	perEntry := int64(unsafe.Sizeof(zero)) + shardIDSize + hashTableOverhead

	return int64(len(idx.redirects)) * perEntry
}
