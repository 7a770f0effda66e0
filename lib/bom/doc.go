// Package bom implements a Balanced Ordered Map: a single-writer,
// multi-reader-safe height-balanced binary search tree (an AVL tree) with
// O(log n) insert/lookup/remove and ordered traversal.
//
// A bom.Tree is not itself safe for concurrent use from multiple goroutines;
// the shard package wraps it with the read/write lock that makes it so. The
// tree only guarantees the AVL invariants (BST ordering, height bookkeeping,
// |balance factor| <= 1 at every node) on return from a mutating call.
//
// The rotation/rebalance algorithm follows the classic AVL construction: on
// every insert/remove, heights are recomputed bottom-up along the path that
// changed, and a node whose balance factor leaves [-1, 1] is fixed with a
// single rotation (left-left/right-right case) or a double rotation
// (left-right/right-left case) before its parent is examined.
package bom
