package stack

import (
	"errors"
	"testing"
)

func TestSize(t *testing.T) {
	size := Size()
	if size <= 0 {
		t.Fatalf("Size() = %d, want > 0", size)
	}
	if size%8 != 0 {
		t.Errorf("Size() = %d is not a multiple of the word size", size)
	}
}

func TestRoundUp(t *testing.T) {
	tests := []struct {
		n, align, want int
	}{
		{1, 4096, 4096},
		{4096, 4096, 4096},
		{4097, 4096, 8192},
		{8 << 20, 4096, 8 << 20},
		{13, 8, 16},
	}
	for _, tc := range tests {
		if got := roundUp(tc.n, tc.align); got != tc.want {
			t.Errorf("roundUp(%d, %d) = %d, want %d", tc.n, tc.align, got, tc.want)
		}
	}
}

func TestMapUnmap(t *testing.T) {
	mem, err := Map(10000)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if len(mem) < 10000 || len(mem)%4096 != 0 {
		t.Errorf("Map(10000) returned %d bytes", len(mem))
	}
	// The whole region must be writable.
	mem[0] = 1
	mem[len(mem)-1] = 2
	if err := Unmap(mem); err != nil {
		t.Errorf("Unmap: %v", err)
	}
}

func TestMapInvalidSize(t *testing.T) {
	if _, err := Map(0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Map(0): got %v, want %v", err, ErrInvalidSize)
	}
}
