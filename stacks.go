package lwp

import (
	"github.com/tinygo-org/lwp/internal/stack"
)

// StackProvider supplies the stack regions of created threads.
type StackProvider interface {
	// Acquire returns a writable region of at least size bytes.
	Acquire(size int) ([]byte, error)

	// Release gives back a region returned by Acquire.
	Release(mem []byte) error
}

// mmapStacks maps every stack as a private anonymous region.
type mmapStacks struct{}

func (mmapStacks) Acquire(size int) ([]byte, error) {
	return stack.Map(size)
}

func (mmapStacks) Release(mem []byte) error {
	return stack.Unmap(mem)
}

// stackSize returns the size of the regions to acquire for cfg, rounded up
// to a whole number of 16-byte frames.
func stackSize(cfg Config) int {
	size := int(cfg.StackSize)
	if size <= 0 {
		size = stack.Size()
	}
	return (size + 15) &^ 15
}
