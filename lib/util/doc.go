// Package util provides small, dependency-light building blocks shared by
// the bom, shard, router, redirect and store packages.
//
// The package contains:
//   - functions: seed generation and seeded hash functions for the default
//     Hasher/Ranger used when a caller does not supply their own
//   - statistics: Stats/DistributionStats helpers used to compute balance
//     scores and shard-distribution quality
//   - mapheap: a priority queue (heap + key index) used by the store
//     package to pick migration targets during rebalance
//   - lockfreempsc: a lock-free Multi-Producer Single-Consumer queue used
//     by the redirect package to report metrics without contending with
//     its own read/write lock
package util
