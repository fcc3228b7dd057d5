package lwp

// table owns every thread record of a runtime. It is indexed by TID; slot 0
// belongs to NoThread and is never handed out. Unused identifiers are kept on
// a free stack so that allocation never scans the table.
type table struct {
	slots   []*Thread
	free    []TID
	initial uint64
	max     uint64 // highest identifier that may be assigned
}

func newTable(initial int, max uint64) table {
	if initial < 2 {
		initial = 2
	}
	if max == 0 {
		max = maxTID
	}
	return table{initial: uint64(initial), max: max}
}

// maxTID is the highest identifier the TID type can represent once the
// sentinel is set aside.
const maxTID = ^uint64(0) - 1

// alloc claims the lowest free identifier and returns a fresh record for it,
// growing the table if it is full.
func (tb *table) alloc() (*Thread, error) {
	if len(tb.free) == 0 && !tb.grow() {
		return nil, ErrTooManyThreads
	}
	id := tb.free[len(tb.free)-1]
	tb.free = tb.free[:len(tb.free)-1]
	t := &Thread{id: id}
	tb.slots[id] = t
	return t, nil
}

// release returns the identifier of t to the free stack.
func (tb *table) release(t *Thread) {
	id := t.id
	if id == NoThread || uint64(id) >= uint64(len(tb.slots)) || tb.slots[id] != t {
		return
	}
	tb.slots[id] = nil
	tb.free = append(tb.free, id)
	t.id = NoThread
}

func (tb *table) lookup(id TID) *Thread {
	if id == NoThread || uint64(id) >= uint64(len(tb.slots)) {
		return nil
	}
	return tb.slots[id]
}

// grow doubles the number of slots, capped so that no identifier above max
// is created. It reports false when the table is already at that cap.
func (tb *table) grow() bool {
	cur := uint64(len(tb.slots))
	limit := tb.max + 1
	n := tb.initial
	if cur != 0 {
		n = cur * 2
		if n < cur {
			n = limit
		}
	}
	if n > limit {
		n = limit
	}
	if n <= cur {
		return false
	}
	slots := make([]*Thread, n)
	copy(slots, tb.slots)
	tb.slots = slots

	// Push in descending order so the lowest identifier is popped first.
	low := cur
	if low == 0 {
		low = 1
	}
	for id := n - 1; id >= low; id-- {
		tb.free = append(tb.free, TID(id))
	}
	return true
}

// capacity returns the number of slots, including the sentinel slot.
func (tb *table) capacity() int {
	return len(tb.slots)
}
