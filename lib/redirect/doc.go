// Package redirect implements the store's linearizability fix: a record of
// every key whose actual shard diverges from the router's natural shard
// for it.
//
// Without this index, diverting a key away from a hotspot shard at insert
// time would make later lookups at the natural shard miss silently. With
// it, a lookup that misses the natural shard consults the index for the
// one alternative shard that might hold the key.
//
// Lookup/hit counters feed two rcrowley/go-metrics Meters so redirect
// traffic can be observed the way the router's load gauges are; the
// counters themselves are plain atomics, and the Meter updates are
// dispatched through a util.LockFreeMPSC queue drained by one background
// goroutine so reporting never contends with the index's own lock.
package redirect
