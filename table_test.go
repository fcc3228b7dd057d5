package lwp

import (
	"errors"
	"testing"
)

func TestTableAlloc(t *testing.T) {
	tb := newTable(2, 5)
	wantCap := []int{2, 4, 4, 6, 6}
	for i := 1; i <= 5; i++ {
		th, err := tb.alloc()
		if err != nil {
			t.Fatalf("alloc #%d: %v", i, err)
		}
		if th.ID() != TID(i) {
			t.Errorf("alloc #%d returned %d", i, th.ID())
		}
		if got := tb.capacity(); got != wantCap[i-1] {
			t.Errorf("after alloc #%d capacity is %d, want %d", i, got, wantCap[i-1])
		}
	}
	if _, err := tb.alloc(); !errors.Is(err, ErrTooManyThreads) {
		t.Errorf("alloc beyond the ceiling: got %v, want %v", err, ErrTooManyThreads)
	}

	third := tb.lookup(3)
	tb.release(third)
	if third.ID() != NoThread {
		t.Errorf("released record still has id %d", third.ID())
	}
	if tb.lookup(3) != nil {
		t.Errorf("lookup(3) after release is not nil")
	}
	tb.release(third)
	th, err := tb.alloc()
	if err != nil || th.ID() != 3 {
		t.Errorf("alloc after release = %v, %v, want thread 3", th, err)
	}
	if th == third {
		t.Errorf("alloc reused the released record")
	}
}

func TestTableLookup(t *testing.T) {
	var empty table
	if empty.lookup(1) != nil {
		t.Errorf("lookup on an unused table returned a thread")
	}
	tb := newTable(0, 0)
	if tb.max != maxTID {
		t.Errorf("default ceiling %d, want %d", tb.max, maxTID)
	}
	th, _ := tb.alloc()
	for _, id := range []TID{NoThread, 2, 1 << 40} {
		if got := tb.lookup(id); got != nil {
			t.Errorf("lookup(%d) = %v, want nil", id, got)
		}
	}
	if tb.lookup(1) != th {
		t.Errorf("lookup(1) did not return the allocated thread")
	}
}
