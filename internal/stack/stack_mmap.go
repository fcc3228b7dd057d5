//go:build linux || darwin

package stack

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Size returns the stack size policy of the host: the soft RLIMIT_STACK
// limit rounded up to the page size, or DefaultSize when the limit is
// unlimited or unreadable.
func Size() int {
	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_STACK, &rlim); err != nil {
		return DefaultSize
	}
	if rlim.Cur == unix.RLIM_INFINITY || rlim.Cur == 0 || rlim.Cur > 1<<40 {
		return DefaultSize
	}
	return roundUp(int(rlim.Cur), unix.Getpagesize())
}

// Map returns a private, anonymous, readable and writable region of at least
// size bytes, rounded up to the page size.
func Map(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	size = roundUp(size, unix.Getpagesize())
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON|mapStack)
	if err != nil {
		return nil, fmt.Errorf("stack: mmap %d bytes: %w", size, err)
	}
	return mem, nil
}

// Unmap releases a region returned by Map.
func Unmap(mem []byte) error {
	if err := unix.Munmap(mem); err != nil {
		return fmt.Errorf("stack: munmap: %w", err)
	}
	return nil
}
