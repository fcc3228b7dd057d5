// Package stack acquires and releases the memory regions used as thread
// stacks.
package stack

import "errors"

// DefaultSize is the stack size used when the host stack limit is unlimited
// or cannot be read.
const DefaultSize = 8 << 20

// ErrInvalidSize is returned for a zero or negative region size.
var ErrInvalidSize = errors.New("stack: invalid size")

// roundUp rounds n up to a multiple of align, which must be a power of two.
func roundUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
