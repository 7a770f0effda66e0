// Package store implements the Sharded Store: the top-level container that
// orchestrates routing, shard access, redirect tracking, and rebalancing
// across a fixed number of shard.Containers.
//
// Put/Get/Contains/Remove acquire the store's global rebalance barrier in
// shared mode, then dispatch to the router-chosen shard (consulting the
// redirect index, then the key's natural shard, on a miss). Rebalance acquires the barrier exclusively,
// quiescing all other traffic while it drains entries from overloaded
// shards into underloaded ones and reconciles the router's load counters.
//
// The Store is the only exported construction point for the whole library;
// bom, shard, router, and redirect are composed internally and are not
// meant to be driven directly by callers outside of tests.
package store
