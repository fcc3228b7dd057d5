package lwp

const rrInitialCap = 16

// RoundRobin is the default scheduler. Threads are kept in admission order
// and Next walks that order from a persistent cursor, so every runnable
// thread is selected once per cycle.
//
// Terminated threads stay in the list until they are removed; Next and Len
// skip them.
type RoundRobin struct {
	threads []*Thread

	// Index where the next search starts, one past the last selection.
	cursor int
}

// NewRoundRobin returns an empty round-robin scheduler.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (rr *RoundRobin) Init() {
	rr.threads = make([]*Thread, 0, rrInitialCap)
	rr.cursor = 0
}

func (rr *RoundRobin) Shutdown() {
	rr.threads = nil
	rr.cursor = 0
}

func (rr *RoundRobin) Admit(t *Thread) {
	if rr.threads == nil {
		rr.Init()
	}
	if len(rr.threads) == cap(rr.threads) {
		threads := make([]*Thread, len(rr.threads), 2*cap(rr.threads))
		copy(threads, rr.threads)
		rr.threads = threads
	}
	rr.threads = append(rr.threads, t)
}

func (rr *RoundRobin) Remove(t *Thread) {
	for i, other := range rr.threads {
		if other == nil || other.id != t.id {
			continue
		}
		rr.removeAt(i)
		return
	}
}

// removeAt splices out the entry at i. The cursor moves back with the
// entries behind it so it keeps pointing at the same next candidate.
func (rr *RoundRobin) removeAt(i int) {
	copy(rr.threads[i:], rr.threads[i+1:])
	rr.threads[len(rr.threads)-1] = nil
	rr.threads = rr.threads[:len(rr.threads)-1]
	if i < rr.cursor {
		rr.cursor--
	}
}

func (rr *RoundRobin) Next() *Thread {
	n := len(rr.threads)
	if n == 0 {
		return nil
	}
	if rr.cursor >= n {
		rr.cursor = 0
	}
	// From the cursor to the end, then from the start up to the cursor.
	for k := 0; k < n; k++ {
		i := (rr.cursor + k) % n
		t := rr.threads[i]
		if t == nil || t.Terminated() {
			continue
		}
		rr.cursor = i + 1
		return t
	}
	return nil
}

func (rr *RoundRobin) Len() int {
	n := 0
	for _, t := range rr.threads {
		if t != nil && !t.Terminated() {
			n++
		}
	}
	return n
}
