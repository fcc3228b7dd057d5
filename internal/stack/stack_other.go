//go:build !linux && !darwin

package stack

// Size returns DefaultSize; there is no stack limit to consult.
func Size() int {
	return DefaultSize
}

// Map allocates a region of size bytes from the Go heap.
func Map(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return make([]byte, roundUp(size, 4096)), nil
}

// Unmap drops a region returned by Map; the garbage collector reclaims it.
func Unmap(mem []byte) error {
	return nil
}
