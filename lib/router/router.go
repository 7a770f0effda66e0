package router

import (
	"fmt"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"

	"github.com/ValentinKolb/avlshard/lib/util"
)

// Strategy selects how a Router maps keys to shards.
type Strategy int

const (
	// Range routes shard = ranger(k) mod N. Deterministic, preserves
	// range locality, adversarially vulnerable to skewed key sequences.
	Range Strategy = iota
	// Hash (STATIC_HASH) routes shard = stable_hash(k) mod N. No load
	// awareness.
	Hash
	// LoadAware starts from the Hash natural shard and diverts away from
	// a detected hotspot to the first non-hotspot alternative.
	LoadAware
	// VirtualNodes routes via a consistent-hash ring with V replicas per
	// shard.
	VirtualNodes
	// Intelligent composes VirtualNodes with LoadAware's hotspot
	// diversion.
	Intelligent
)

func (s Strategy) String() string {
	switch s {
	case Range:
		return "RANGE"
	case Hash:
		return "HASH"
	case LoadAware:
		return "LOAD_AWARE"
	case VirtualNodes:
		return "VIRTUAL_NODES"
	case Intelligent:
		return "INTELLIGENT"
	default:
		return "UNKNOWN"
	}
}

const (
	defaultHotspotThreshold = 1.5
	defaultHotspotFloor     = int64(100)
	defaultVirtualNodes     = 150
)

// Router maps keys to shard indices and tracks per-shard load. It holds no
// reference to shard data; the store calls RecordInsertion/RecordRemoval on
// successful mutations to keep the load counters current.
type Router[K any] struct {
	strategy Strategy
	n        int
	seed     uint64

	hasher Hasher[K]
	ranger Ranger[K]

	hotspotH float64
	hotspotT int64

	v    int
	ring ringSlice

	loads []atomic.Int64

	loadGauges   []*metrics.Gauge
	balanceGauge *metrics.Gauge
}

// New creates a Router for n shards using the given strategy. Options may
// override the hash seed, hasher/ranger, hotspot constants, virtual-node
// replication factor, and metrics name prefix.
func New[K any](n int, strategy Strategy, opts ...Option[K]) *Router[K] {
	if n < 1 {
		panic("router: n must be >= 1")
	}

	r := &Router[K]{
		strategy: strategy,
		n:        n,
		seed:     util.GenerateSeed(),
		hotspotH: defaultHotspotThreshold,
		hotspotT: defaultHotspotFloor,
		v:        defaultVirtualNodes,
		loads:    make([]atomic.Int64, n),
	}
	r.hasher = defaultHasher[K]()
	r.ranger = defaultRanger[K]()

	cfg := config[K]{metricsPrefix: "avlshard_router"}
	for _, opt := range opts {
		opt(r, &cfg)
	}

	if strategy == VirtualNodes || strategy == Intelligent {
		r.ring = buildRing(n, r.v, r.seed)
	}

	r.loadGauges = make([]*metrics.Gauge, n)
	for i := 0; i < n; i++ {
		shard := i
		r.loadGauges[i] = metrics.GetOrCreateGauge(
			fmt.Sprintf(`%s_shard_load{shard="%d"}`, cfg.metricsPrefix, shard),
			func() float64 { return float64(r.loads[shard].Load()) },
		)
	}
	r.balanceGauge = metrics.GetOrCreateGauge(
		fmt.Sprintf("%s_balance_score", cfg.metricsPrefix),
		func() float64 { return r.BalanceScore() },
	)

	return r
}

// N returns the fixed number of shards this router distributes over.
func (r *Router[K]) N() int { return r.n }

// Strategy returns the router's fixed strategy.
func (r *Router[K]) Strategy() Strategy { return r.strategy }

// --------------------------------------------------------------------------
// Natural shard (load-independent)
// --------------------------------------------------------------------------

func (r *Router[K]) rangeNatural(k K) int {
	return int(r.ranger(k) % uint64(r.n))
}

func (r *Router[K]) hashNatural(k K) int {
	return int(r.hasher(k, r.seed) % uint64(r.n))
}

func (r *Router[K]) ringNatural(k K) (idx int, shard int) {
	return r.ring.lookup(r.hasher(k, r.seed))
}

// Natural returns the shard this router would choose for k with
// hotspot-diversion disabled: a pure function of k and the strategy, never
// of live load. The redirect index uses this to recognize stale redirects.
func (r *Router[K]) Natural(k K) int {
	switch r.strategy {
	case Range:
		return r.rangeNatural(k)
	case VirtualNodes, Intelligent:
		_, shard := r.ringNatural(k)
		return shard
	default: // Hash, LoadAware
		return r.hashNatural(k)
	}
}

// --------------------------------------------------------------------------
// Route (load-aware)
// --------------------------------------------------------------------------

// Route returns the shard a key should be routed to right now, applying
// hotspot diversion for LoadAware and Intelligent.
func (r *Router[K]) Route(k K) int {
	switch r.strategy {
	case Range:
		return r.rangeNatural(k)
	case Hash:
		return r.hashNatural(k)
	case LoadAware:
		h := r.hashNatural(k)
		loads := r.snapshotLoads()
		return r.divertHash(h, loads)
	case VirtualNodes:
		_, shard := r.ringNatural(k)
		return shard
	case Intelligent:
		idx, shard := r.ringNatural(k)
		loads := r.snapshotLoads()
		return r.divertRing(idx, shard, loads)
	default:
		return r.hashNatural(k)
	}
}

// divertHash implements LoadAware's probe: if h is a hotspot, walk
// (h+1)%N, (h+2)%N, ... and return the first non-hotspot; if every shard
// is a hotspot, give up and return h.
func (r *Router[K]) divertHash(h int, loads []int64) int {
	mean := meanOf(loads)
	if !isHotspotAt(h, loads, mean, r.hotspotH, r.hotspotT) {
		return h
	}
	for step := 1; step < r.n; step++ {
		candidate := (h + step) % r.n
		if !isHotspotAt(candidate, loads, mean, r.hotspotH, r.hotspotT) {
			return candidate
		}
	}
	return h
}

// divertRing implements Intelligent's probe: if the ring-chosen shard is a
// hotspot, walk forward through subsequent ring tokens (which may repeat
// shards, since each shard owns V tokens) until a non-hotspot shard is
// found, bounded by one full trip around the ring.
func (r *Router[K]) divertRing(idx, shard int, loads []int64) int {
	mean := meanOf(loads)
	if !isHotspotAt(shard, loads, mean, r.hotspotH, r.hotspotT) {
		return shard
	}
	for step := 0; step < len(r.ring); step++ {
		idx = (idx + 1) % len(r.ring)
		candidate := r.ring[idx].shard
		if !isHotspotAt(candidate, loads, mean, r.hotspotH, r.hotspotT) {
			return candidate
		}
	}
	return shard
}

// --------------------------------------------------------------------------
// Load bookkeeping
// --------------------------------------------------------------------------

// RecordInsertion increments shard's load counter. The store calls this
// after a successful new-entry insertion into that shard.
func (r *Router[K]) RecordInsertion(shard int) {
	r.loads[shard].Add(1)
}

// RecordRemoval decrements shard's load counter. The store calls this
// after a successful removal from that shard.
func (r *Router[K]) RecordRemoval(shard int) {
	r.loads[shard].Add(-1)
}

// Reconcile overwrites the load counters with actual shard counts,
// re-establishing them as authoritative. The store calls this after
// rebalance migrates entries between shards.
func (r *Router[K]) Reconcile(counts []int64) {
	for i, c := range counts {
		if i >= len(r.loads) {
			break
		}
		r.loads[i].Store(c)
	}
}

// LoadCounters returns a snapshot of the current per-shard load counters.
func (r *Router[K]) LoadCounters() []int64 {
	return r.snapshotLoads()
}

func (r *Router[K]) snapshotLoads() []int64 {
	loads := make([]int64, r.n)
	for i := range r.loads {
		loads[i] = r.loads[i].Load()
	}
	return loads
}

// --------------------------------------------------------------------------
// Hotspot detection and balance score
// --------------------------------------------------------------------------

func meanOf(loads []int64) float64 {
	if len(loads) == 0 {
		return 0
	}
	var sum int64
	for _, l := range loads {
		sum += l
	}
	return float64(sum) / float64(len(loads))
}

func isHotspotAt(i int, loads []int64, mean, h float64, t int64) bool {
	return float64(loads[i]) > h*mean && loads[i] > t
}

// IsHotspot reports whether shard i currently qualifies as a hotspot.
func (r *Router[K]) IsHotspot(i int) bool {
	loads := r.snapshotLoads()
	return isHotspotAt(i, loads, meanOf(loads), r.hotspotH, r.hotspotT)
}

// HasHotspot reports whether any shard currently qualifies as a hotspot.
func (r *Router[K]) HasHotspot() bool {
	loads := r.snapshotLoads()
	mean := meanOf(loads)
	for i := range loads {
		if isHotspotAt(i, loads, mean, r.hotspotH, r.hotspotT) {
			return true
		}
	}
	return false
}

// BalanceScore returns 1 - (max-min)/max(max,1), clamped to [0,1]; 1.0 is
// perfectly balanced, 0.0 is degenerate (all load on one shard).
func (r *Router[K]) BalanceScore() float64 {
	loads := r.snapshotLoads()
	if len(loads) == 0 {
		return 1
	}
	max, min := loads[0], loads[0]
	for _, l := range loads[1:] {
		if l > max {
			max = l
		}
		if l < min {
			min = l
		}
	}
	denom := max
	if denom < 1 {
		denom = 1
	}
	score := 1 - float64(max-min)/float64(denom)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
