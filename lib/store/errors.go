package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no live entry in any
// shard.
var ErrNotFound = errors.New("store: key not found")

// ErrEmpty is the store-level counterpart of bom.ErrEmpty. No Store method
// returns it: Store has no MinKey/MaxKey.
var ErrEmpty = errors.New("store: store is empty")

// assert panics on invariant violations the design classifies as fatal
// bugs rather than recoverable errors (BST/height/balance breakage,
// count/size disagreement, redirect-consistency failure). It mirrors the
// teacher's CRITICAL-level Panicf semantics without depending on that
// logger interface.
func assert(cond bool, msg string, args ...any) {
	if !cond {
		panic("store: invariant violation: " + fmt.Sprintf(msg, args...))
	}
}
