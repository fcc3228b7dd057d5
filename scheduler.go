package lwp

// Scheduler decides which thread runs next. The runtime admits every thread
// it creates, removes threads when they are reclaimed, and asks Next for the
// thread to switch to whenever the running thread yields.
//
// A scheduler may also implement Init and Shutdown. Init is called once when
// the scheduler becomes active and Shutdown once when it is replaced.
//
// Scheduler methods are called with the runtime in the middle of an
// operation and must not call back into it.
type Scheduler interface {
	// Admit makes a live thread eligible for selection.
	Admit(t *Thread)

	// Remove makes t ineligible for selection. Removing a thread the
	// scheduler does not know about is a no-op.
	Remove(t *Thread)

	// Next returns the thread to run next, or nil if no thread is runnable.
	// It must never return a terminated thread.
	Next() *Thread

	// Len returns the number of admitted threads that have not terminated.
	Len() int
}

type initializer interface {
	Init()
}

type shutdowner interface {
	Shutdown()
}

// SchedulerFuncs is a Scheduler built from plain functions. InitFunc and
// ShutdownFunc may be nil; the others are required.
//
// SetScheduler copies a SchedulerFuncs, so changing the fields afterwards does
// not affect the installed scheduler.
type SchedulerFuncs struct {
	InitFunc     func()
	ShutdownFunc func()
	AdmitFunc    func(t *Thread)
	RemoveFunc   func(t *Thread)
	NextFunc     func() *Thread
	LenFunc      func() int
}

func (s SchedulerFuncs) Init() {
	if s.InitFunc != nil {
		s.InitFunc()
	}
}

func (s SchedulerFuncs) Shutdown() {
	if s.ShutdownFunc != nil {
		s.ShutdownFunc()
	}
}

func (s SchedulerFuncs) Admit(t *Thread)  { s.AdmitFunc(t) }
func (s SchedulerFuncs) Remove(t *Thread) { s.RemoveFunc(t) }
func (s SchedulerFuncs) Next() *Thread    { return s.NextFunc() }
func (s SchedulerFuncs) Len() int         { return s.LenFunc() }
