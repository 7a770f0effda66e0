package shard

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"

	"github.com/ValentinKolb/avlshard/lib/bom"
)

// Container is a single partition of a sharded ordered map: a bom.Tree
// guarded by a read/write lock, with an atomic entry counter so Size() can
// be read without contending with readers or writers.
type Container[K constraints.Ordered, V any] struct {
	mu   sync.RWMutex
	tree *bom.Tree[K, V]
	size atomic.Int64
}

// New creates an empty Container.
func New[K constraints.Ordered, V any]() *Container[K, V] {
	return &Container[K, V]{tree: bom.New[K, V]()}
}

// Insert adds or overwrites key/value under the container's write lock.
func (c *Container[K, V]) Insert(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.InsertLocked(key, value)
}

// Remove deletes key under the container's write lock.
func (c *Container[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RemoveLocked(key)
}

// Contains reports whether key is present, under the container's read lock.
func (c *Container[K, V]) Contains(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Contains(key)
}

// Get returns the value for key, under the container's read lock.
func (c *Container[K, V]) Get(key K) (V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.Get(key)
}

// MinKey returns the smallest key in the container, under the read lock.
func (c *Container[K, V]) MinKey() (K, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.MinKey()
}

// MaxKey returns the largest key in the container, under the read lock.
func (c *Container[K, V]) MaxKey() (K, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tree.MaxKey()
}

// Size returns the number of entries currently held, without locking.
func (c *Container[K, V]) Size() int {
	return int(c.size.Load())
}

// --------------------------------------------------------------------------
// Explicit locking for multi-step sequences
// --------------------------------------------------------------------------
//
// Rebalance migrates a bounded number of entries from one shard to another
// and must hold the source shard's write lock across the whole drain/insert
// sequence so no writer observes a partially-migrated state. The *Locked
// methods below operate on the tree directly and assume the caller already
// holds the appropriate lock via Lock/RLock.

// Lock acquires the container's write lock.
func (c *Container[K, V]) Lock() { c.mu.Lock() }

// Unlock releases the container's write lock.
func (c *Container[K, V]) Unlock() { c.mu.Unlock() }

// RLock acquires the container's read lock.
func (c *Container[K, V]) RLock() { c.mu.RLock() }

// RUnlock releases the container's read lock.
func (c *Container[K, V]) RUnlock() { c.mu.RUnlock() }

// InsertLocked inserts key/value without locking; the caller must hold Lock.
func (c *Container[K, V]) InsertLocked(key K, value V) bool {
	inserted := c.tree.Insert(key, value)
	if inserted {
		c.size.Add(1)
	}
	return inserted
}

// RemoveLocked removes key without locking; the caller must hold Lock.
func (c *Container[K, V]) RemoveLocked(key K) bool {
	removed := c.tree.Remove(key)
	if removed {
		c.size.Add(-1)
	}
	return removed
}

// MinKeyLocked returns the smallest key without locking; the caller must
// hold Lock or RLock.
func (c *Container[K, V]) MinKeyLocked() (K, error) {
	return c.tree.MinKey()
}

// PopMinLocked removes and returns the smallest key/value pair without
// locking; the caller must hold Lock. It reports false if the container is
// empty. Rebalance uses this to drain a bounded number of entries off an
// overloaded shard while leaving the rest of its tree untouched, rather
// than OrderedDrain's whole-tree consumption.
func (c *Container[K, V]) PopMinLocked() (key K, value V, ok bool) {
	k, err := c.tree.MinKey()
	if err != nil {
		return key, value, false
	}
	v, err := c.tree.Get(k)
	if err != nil {
		panic("shard: MinKey returned a key absent from Get: " + err.Error())
	}
	if !c.tree.Remove(k) {
		panic("shard: MinKey returned a key Remove could not find")
	}
	c.size.Add(-1)
	return k, v, true
}
