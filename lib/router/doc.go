// Package router implements the adaptive key-to-shard routing policy: the
// piece of the store that decides which shard a key belongs to, tracks
// per-shard load, and diverts keys away from detected hotspots.
//
// A Router never touches a shard's data; it only ever returns shard
// indices and records load counters that the store updates on successful
// shard mutations. Five strategies are supported (Range, Hash, LoadAware,
// VirtualNodes, Intelligent); the strategy is fixed for the Router's
// lifetime. Per-shard load is exposed as VictoriaMetrics gauges so the
// distribution can be watched the way the store's other runtime signals
// are.
package router
