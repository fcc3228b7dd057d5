package lwp

// queue is a FIFO of terminated threads that have not been reclaimed yet,
// linked through their exited field. The zero value is an empty queue.
type queue struct {
	head, tail *Thread
}

// push a thread onto the queue.
func (q *queue) push(t *Thread) {
	if q.tail != nil {
		q.tail.exited = t
	}
	q.tail = t
	t.exited = nil
	if q.head == nil {
		q.head = t
	}
}

// pop a thread off of the queue.
func (q *queue) pop() *Thread {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.exited
	if q.tail == t {
		q.tail = nil
	}
	t.exited = nil
	return t
}

func (q *queue) empty() bool {
	return q.head == nil
}

// list is a doubly linked list of the threads registered with a runtime, in
// creation order. libOne points to the previous thread and libTwo to the
// next one.
type list struct {
	head, tail *Thread
}

func (l *list) push(t *Thread) {
	t.libOne = l.tail
	t.libTwo = nil
	if l.tail != nil {
		l.tail.libTwo = t
	} else {
		l.head = t
	}
	l.tail = t
}

func (l *list) remove(t *Thread) {
	if t.libOne != nil {
		t.libOne.libTwo = t.libTwo
	} else if l.head == t {
		l.head = t.libTwo
	}
	if t.libTwo != nil {
		t.libTwo.libOne = t.libOne
	} else if l.tail == t {
		l.tail = t.libOne
	}
	t.libOne, t.libTwo = nil, nil
}

// slice returns the threads of l in order.
func (l *list) slice() []*Thread {
	var threads []*Thread
	for t := l.head; t != nil; t = t.libTwo {
		threads = append(threads, t)
	}
	return threads
}
