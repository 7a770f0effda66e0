// Package shard wraps a bom.Tree with the synchronization that makes it
// safe for concurrent use: a read/write lock guarding the tree itself, plus
// an atomic element counter so Size() can be read without taking the lock.
//
// A Container is the unit the store package distributes entries across. It
// does not know about routing, redirection, or rebalancing; it only knows
// how to mutate and query the ordered map it owns under lock.
package shard
