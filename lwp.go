// Package lwp implements lightweight processes: cooperative threads that are
// multiplexed onto a single flow of control and switched only when the
// running thread yields, exits or waits.
//
// A program creates threads with Create, turns its own flow of control into
// the first thread with Start, and from then on hands control around with
// Yield. Which thread runs next is decided by a Scheduler; RoundRobin is used
// unless another one is installed with SetScheduler. When the running thread
// yields and no thread is left to run, the process exits with the status of
// that thread.
//
// All state lives in a Runtime. The package-level functions operate on the
// process-wide Default runtime.
package lwp

import (
	"errors"

	"github.com/tinygo-org/lwp/internal/task"
)

// TID identifies a thread within a Runtime.
type TID uint64

// NoThread is never assigned to a thread. Operations return it when there is
// no thread to report.
const NoThread TID = 0

// Func is the body of a thread. Its return value becomes the exit status of
// the thread, as if it had called Exit.
type Func func(arg any) int

// Registers is the saved register file of a thread.
type Registers = task.Registers

var (
	// ErrTooManyThreads is returned when the thread table has reached the
	// configured identifier ceiling.
	ErrTooManyThreads = errors.New("lwp: too many threads")

	// ErrStarted is returned by a second call to Start.
	ErrStarted = errors.New("lwp: runtime already started")

	// ErrReentrant is returned when a scheduler callback, or a deferred call
	// of a thread being reclaimed, calls back into the runtime.
	ErrReentrant = errors.New("lwp: called from inside a scheduler callback or a reclaimed thread")

	// ErrNilFunc is returned by Create for a nil thread body.
	ErrNilFunc = errors.New("lwp: nil thread function")
)

// Layout of the status word: the exit status in the low byte, the
// terminated flag above it.
const (
	termOffset = 8
	statusMask = 1<<termOffset - 1
	statusTerm = 1 << termOffset
)

func mkTermStat(status int) uint32 {
	return statusTerm | uint32(status)&statusMask
}

// Thread is the record of one lightweight process.
type Thread struct {
	id     TID
	stack  []byte
	state  task.State
	status uint32

	// Reserved for the runtime. They link the thread into the list of
	// registered threads.
	libOne, libTwo *Thread

	// SchedOne and SchedTwo are reserved for the active scheduler, which may
	// link threads into its own structures through them. The runtime never
	// touches them except to clear them when a thread is created.
	SchedOne, SchedTwo *Thread

	// Next thread in the queue of terminated threads waiting for Wait.
	exited *Thread
}

// ID returns the identifier of t, or NoThread once t has been reclaimed.
func (t *Thread) ID() TID {
	return t.id
}

// Stack returns the stack region owned by t. It is nil for the thread that
// was adopted by Start, which runs on the stack it was started on.
func (t *Thread) Stack() []byte {
	return t.stack
}

// Registers returns the saved register file of t. It is only meaningful
// while t is not running.
func (t *Thread) Registers() *Registers {
	return &t.state.Regs
}

// Terminated reports whether t has exited.
func (t *Thread) Terminated() bool {
	return t.status&statusTerm != 0
}

// ExitStatus returns the exit status of t, truncated to 8 bits. It is 0
// while t is live.
func (t *Thread) ExitStatus() int {
	return int(t.status & statusMask)
}

// init resets t to a live thread with a fresh register file.
func (t *Thread) init() {
	t.stack = nil
	t.status = 0
	t.libOne, t.libTwo = nil, nil
	t.SchedOne, t.SchedTwo = nil, nil
	t.exited = nil
	t.state.Initialize()
}
