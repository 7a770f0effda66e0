package router

// config carries construction-time settings that are not retained on the
// Router itself (currently only the metrics name prefix).
type config[K any] struct {
	metricsPrefix string
}

// Option configures a Router at construction time.
type Option[K any] func(r *Router[K], cfg *config[K])

// WithSeed fixes the hash seed instead of generating a random one; useful
// for reproducing a routing decision across runs.
func WithSeed[K any](seed uint64) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.seed = seed
	}
}

// WithHasher overrides the stable hash function used by Hash, LoadAware,
// VirtualNodes, and Intelligent.
func WithHasher[K any](h Hasher[K]) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.hasher = h
	}
}

// WithRanger overrides the integer projection used by Range.
func WithRanger[K any](rg Ranger[K]) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.ranger = rg
	}
}

// WithHotspotThreshold sets H, the multiple of the mean load a shard must
// exceed to be considered a hotspot (default 1.5).
func WithHotspotThreshold[K any](h float64) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.hotspotH = h
	}
}

// WithHotspotFloor sets T, the absolute load floor a shard must clear
// before it can be considered a hotspot (default 100), which avoids false
// positives while load counters are still small.
func WithHotspotFloor[K any](t int64) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.hotspotT = t
	}
}

// WithVirtualNodes sets V, the number of ring replicas placed per shard
// (default 150), used only by VirtualNodes and Intelligent.
func WithVirtualNodes[K any](v int) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		r.v = v
	}
}

// WithMetricsPrefix overrides the VictoriaMetrics gauge name prefix
// (default "avlshard_router"); useful for distinguishing multiple stores
// in the same process's metrics output.
func WithMetricsPrefix[K any](prefix string) Option[K] {
	return func(r *Router[K], cfg *config[K]) {
		cfg.metricsPrefix = prefix
	}
}
