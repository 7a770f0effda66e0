package store

import (
	"golang.org/x/exp/constraints"

	"github.com/ValentinKolb/avlshard/lib/router"
)

const (
	defaultShardCount = 8
	// DefaultRebalanceThreshold is the balance-score threshold
	// ShouldRebalance uses when a caller has no stronger preference.
	DefaultRebalanceThreshold = 0.7
)

// config carries construction-time settings for New. Router-specific
// knobs (hash seed/hasher/ranger, hotspot constants, virtual-node count,
// metrics prefix) are collected separately and forwarded to router.New
// rather than duplicated onto Store.
type config[K constraints.Ordered] struct {
	n           int
	strategy    router.Strategy
	routerOpts  []router.Option[K]
	debugFanout bool
	logger      *Logger
	logLevel    Level
}

// Option configures a Store at construction time.
type Option[K constraints.Ordered] func(*config[K])

// WithShardCount sets N, the fixed number of shards (default 8). N cannot
// change after construction.
func WithShardCount[K constraints.Ordered](n int) Option[K] {
	return func(cfg *config[K]) {
		cfg.n = n
	}
}

// WithStrategy selects the router strategy (default Intelligent).
func WithStrategy[K constraints.Ordered](s router.Strategy) Option[K] {
	return func(cfg *config[K]) {
		cfg.strategy = s
	}
}

// WithSeed fixes the router's hash seed instead of generating a random one.
func WithSeed[K constraints.Ordered](seed uint64) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithSeed[K](seed))
	}
}

// WithHasher overrides the router's stable hash function.
func WithHasher[K constraints.Ordered](h router.Hasher[K]) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithHasher[K](h))
	}
}

// WithRanger overrides the router's Range-strategy integer projection.
func WithRanger[K constraints.Ordered](rg router.Ranger[K]) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithRanger[K](rg))
	}
}

// WithHotspotThreshold sets H, the multiple of mean load a shard must
// exceed to be flagged a hotspot (default 1.5).
func WithHotspotThreshold[K constraints.Ordered](h float64) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithHotspotThreshold[K](h))
	}
}

// WithHotspotFloor sets T, the absolute load floor a shard must clear
// before it can be flagged a hotspot (default 100).
func WithHotspotFloor[K constraints.Ordered](t int64) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithHotspotFloor[K](t))
	}
}

// WithVirtualNodes sets V, the ring replication factor per shard (default
// 150), used only by the VirtualNodes and Intelligent strategies.
func WithVirtualNodes[K constraints.Ordered](v int) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithVirtualNodes[K](v))
	}
}

// WithMetricsPrefix overrides the VictoriaMetrics gauge name prefix the
// router registers its per-shard load and balance-score gauges under.
func WithMetricsPrefix[K constraints.Ordered](prefix string) Option[K] {
	return func(cfg *config[K]) {
		cfg.routerOpts = append(cfg.routerOpts, router.WithMetricsPrefix[K](prefix))
	}
}

// WithDebugFanout enables the defensive fan-out probe in Get/Contains/
// Remove after a redirect-index miss. It is off by default: the redirect
// index is treated as authoritative, and the fan-out exists only as a
// self-check that asserts it never actually finds anything.
func WithDebugFanout[K constraints.Ordered](enabled bool) Option[K] {
	return func(cfg *config[K]) {
		cfg.debugFanout = enabled
	}
}

// WithLogger overrides the Logger Rebalance/GCRedirects report lifecycle
// events through. The default logs at LevelInfo to stderr under the name
// "store".
func WithLogger[K constraints.Ordered](l *Logger) Option[K] {
	return func(cfg *config[K]) {
		cfg.logger = l
	}
}

// WithLogLevel sets the minimum level for the default Logger. Ignored if
// WithLogger is also given.
func WithLogLevel[K constraints.Ordered](level Level) Option[K] {
	return func(cfg *config[K]) {
		cfg.logLevel = level
	}
}
