package lwp

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/inhies/go-bytesize"
	"github.com/tinygo-org/lwp/diagnostics"
	"github.com/tinygo-org/lwp/internal/task"
)

// Runtime owns a set of threads, the scheduler that orders them and the
// identity of the running thread. Only one thread of a Runtime executes at
// any time, so a Runtime needs no locking, but it must only be used from its
// threads (and, before Start, from the goroutine that will call Start).
type Runtime struct {
	cfg       Config
	log       *slog.Logger
	stacks    StackProvider
	stackSize int
	exit      func(int)
	stderr    io.Writer
	color     bool

	table   table
	threads list
	exited  queue
	sched   Scheduler
	current *Thread

	// Thread adopted by Start. Its stack is not ours.
	origin  *Thread
	started bool

	// Set while a scheduler method runs.
	inScheduler bool

	// Thread whose goroutine Wait is unwinding.
	unwinding *Thread
}

// Option customises a Runtime.
type Option func(*Runtime)

// WithStackProvider replaces the default mmap based stack provider.
func WithStackProvider(p StackProvider) Option {
	return func(rt *Runtime) {
		rt.stacks = p
	}
}

// WithLogger sets the logger for debug and warning records.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = l
	}
}

// WithExit replaces os.Exit as the way the runtime ends the process, either
// because no thread is left to run or after a fatal error. The function must
// not return.
func WithExit(exit func(code int)) Option {
	return func(rt *Runtime) {
		rt.exit = exit
	}
}

// WithDiagnostics sets where fatal errors are reported. Nothing written to w
// is coloured.
func WithDiagnostics(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stderr = w
		rt.color = false
	}
}

// New returns a Runtime with no threads.
func New(cfg Config, opts ...Option) *Runtime {
	rt := &Runtime{
		cfg:    cfg,
		stacks: mmapStacks{},
		exit:   os.Exit,
		table:  newTable(cfg.InitialThreads, cfg.MaxThreads),
	}
	rt.stderr, rt.color = diagnostics.Stderr()
	for _, opt := range opts {
		opt(rt)
	}
	if rt.log == nil {
		level := slog.LevelInfo
		if cfg.Verbose {
			level = slog.LevelDebug
		}
		rt.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	rt.stackSize = stackSize(cfg)
	return rt
}

// Create makes a new thread that will run fn(arg) when it is first
// scheduled, and admits it to the scheduler. The caller keeps running.
//
// The thread executes on a goroutine of its own. Its stack region only holds
// the canary and the initial frames, so Config.StackSize may be kept small.
//
// On failure it returns NoThread and the runtime is unchanged.
func (rt *Runtime) Create(fn Func, arg any) (TID, error) {
	if rt.reentered() {
		return NoThread, ErrReentrant
	}
	if fn == nil {
		return NoThread, ErrNilFunc
	}
	t, err := rt.table.alloc()
	if err != nil {
		rt.log.Warn("thread table full", "threads", rt.table.capacity()-1)
		return NoThread, err
	}
	mem, err := rt.stacks.Acquire(rt.stackSize)
	if err != nil {
		rt.table.release(t)
		return NoThread, fmt.Errorf("lwp: create: %w", err)
	}
	t.init()
	t.stack = mem
	if err := t.state.BuildShim(mem, fn, arg, rt.Exit); err != nil {
		rt.releaseStack(t)
		rt.table.release(t)
		return NoThread, fmt.Errorf("lwp: create: %w", err)
	}
	rt.threads.push(t)
	rt.admit(t)
	rt.log.Debug("created thread", "tid", t.id, "stack", bytesize.New(float64(len(mem))))
	return t.id, nil
}

// Start turns the calling flow of control into a thread of rt and then
// yields to whatever thread the scheduler selects. The new thread runs on
// the caller's own stack. Start returns when the scheduler next selects
// that thread. Like Yield, Start ends the process if the new thread is the
// only runnable one.
//
// Start may be called once per Runtime.
func (rt *Runtime) Start() error {
	if rt.reentered() {
		return ErrReentrant
	}
	if rt.started {
		return ErrStarted
	}
	t, err := rt.table.alloc()
	if err != nil {
		return err
	}
	t.init()
	rt.started = true
	rt.origin = t
	rt.threads.push(t)
	rt.admit(t)
	task.Swap(&t.state, nil)
	rt.current = t
	rt.log.Debug("started", "tid", t.id)
	rt.switchTo(t, rt.pickNext("Start", t))
	return nil
}

// Yield hands control to the thread the scheduler selects and returns when
// the calling thread is selected again. If no other thread can be selected,
// the process exits with the exit status of the calling thread.
func (rt *Runtime) Yield() {
	if rt.reentered() {
		rt.fatal("Yield", ErrReentrant.Error())
	}
	cur := rt.current
	if cur == nil {
		rt.fatal("Yield", "no calling thread")
	}
	rt.switchTo(cur, rt.pickNext("Yield", cur))
}

// pickNext asks the scheduler for the thread to run after cur. When nothing
// else is runnable (no selection, or cur itself while it is the only
// runnable thread) the process ends with the status of cur. Any other
// selection of cur or of a terminated thread is fatal.
func (rt *Runtime) pickNext(op string, cur *Thread) *Thread {
	next := rt.next()
	if next == nil || (next == cur && !cur.Terminated() && rt.qlen() == 1) {
		rt.log.Debug("no runnable threads", "tid", cur.id, "status", cur.ExitStatus())
		rt.terminate(cur.ExitStatus())
	}
	if next == cur {
		rt.fatal(op, "scheduler selected the calling thread")
	}
	if next.Terminated() {
		rt.fatal(op, fmt.Sprintf("scheduler selected terminated thread %d", next.id))
	}
	return next
}

// switchTo saves cur and resumes next. It returns when cur runs again.
func (rt *Runtime) switchTo(cur, next *Thread) {
	if !cur.state.CanaryIntact() {
		rt.fatal("Yield", "thread stack overflow")
	}
	rt.log.Debug("switching", "from", cur.id, "to", next.id)
	rt.current = next
	task.Swap(&cur.state, &next.state)
}

// Exit terminates the calling thread with the low 8 bits of status and
// yields. The thread's resources are kept until another thread reclaims it
// with Wait. Exit does not return.
func (rt *Runtime) Exit(status int) {
	if rt.reentered() {
		rt.fatal("Exit", ErrReentrant.Error())
	}
	cur := rt.current
	if cur == nil {
		rt.fatal("Exit", "no calling thread")
	}
	cur.status = mkTermStat(status)
	rt.exited.push(cur)
	rt.log.Debug("thread exited", "tid", cur.id, "status", cur.ExitStatus())
	rt.Yield()
	rt.fatal("Exit", fmt.Sprintf("terminated thread %d was resumed", cur.id))
}

// Wait reclaims a terminated thread and returns its identifier and exit
// status. Threads are reclaimed in the order they terminated. If none has
// terminated yet, Wait yields until one does. It returns NoThread if no
// thread could ever terminate, because no other thread is runnable.
func (rt *Runtime) Wait() (TID, int) {
	if rt.reentered() {
		rt.fatal("Wait", ErrReentrant.Error())
	}
	for rt.exited.empty() {
		if !rt.othersRunnable() {
			return NoThread, 0
		}
		rt.Yield()
	}
	return rt.reclaim(rt.exited.pop())
}

// othersRunnable reports whether any admitted thread besides the caller can
// still run.
func (rt *Runtime) othersRunnable() bool {
	cur := rt.current
	if cur == nil {
		return false
	}
	n := rt.qlen()
	if !cur.Terminated() {
		n--
	}
	return n > 0
}

// reclaim frees everything t owns: its scheduler entry, its goroutine, its
// stack and its identifier. Calls deferred by t run before reclaim returns
// and may not use the runtime. The thread adopted by Start owns no stack and
// its flow of control is never torn down.
func (rt *Runtime) reclaim(t *Thread) (TID, int) {
	id, status := t.id, t.ExitStatus()
	rt.remove(t)
	rt.threads.remove(t)
	rt.unwinding = t
	t.state.Release()
	rt.unwinding = nil
	if t != rt.origin {
		rt.releaseStack(t)
	}
	t.stack = nil
	rt.table.release(t)
	rt.log.Debug("reclaimed thread", "tid", id, "status", status)
	return id, status
}

func (rt *Runtime) releaseStack(t *Thread) {
	if t.stack == nil {
		return
	}
	if err := rt.stacks.Release(t.stack); err != nil {
		rt.log.Warn("releasing stack", "tid", t.id, "err", err)
	}
	t.stack = nil
}

// CurrentID returns the identifier of the running thread, or NoThread before
// Start.
func (rt *Runtime) CurrentID() TID {
	if rt.current == nil {
		return NoThread
	}
	return rt.current.id
}

// Lookup returns the thread with the given identifier, or nil.
func (rt *Runtime) Lookup(id TID) *Thread {
	return rt.table.lookup(id)
}

// Threads returns every thread that has not been reclaimed, in creation
// order.
func (rt *Runtime) Threads() []*Thread {
	return rt.threads.slice()
}

// Scheduler returns the active scheduler, installing a RoundRobin if none
// has been set.
func (rt *Runtime) Scheduler() Scheduler {
	if rt.sched == nil {
		rt.sched = NewRoundRobin()
		rt.initScheduler(rt.sched)
	}
	return rt.sched
}

// SetScheduler replaces the active scheduler. Every live thread is removed
// from the old scheduler, the old scheduler is shut down, s is initialised
// and the threads are admitted to it in creation order. A nil s installs a
// new RoundRobin.
//
// A SchedulerFuncs (or a pointer to one) is copied, so later changes to the
// caller's value have no effect.
func (rt *Runtime) SetScheduler(s Scheduler) {
	if rt.reentered() {
		rt.fatal("SetScheduler", ErrReentrant.Error())
	}
	switch f := s.(type) {
	case *SchedulerFuncs:
		if f == nil {
			s = nil
		} else {
			s = *f
		}
	case *RoundRobin:
		if f == nil {
			s = nil
		}
	}
	if s == nil {
		s = NewRoundRobin()
	}

	var live []*Thread
	for _, t := range rt.threads.slice() {
		if !t.Terminated() {
			live = append(live, t)
		}
	}
	if old := rt.sched; old != nil {
		for _, t := range live {
			rt.remove(t)
		}
		if sd, ok := old.(shutdowner); ok {
			rt.inScheduler = true
			sd.Shutdown()
			rt.inScheduler = false
		}
	}
	rt.sched = s
	rt.initScheduler(s)
	for _, t := range live {
		rt.admit(t)
	}
}

// reentered reports whether a lifecycle operation was called from a
// scheduler callback or from a thread that Wait is unwinding.
func (rt *Runtime) reentered() bool {
	return rt.inScheduler || rt.unwinding != nil
}

func (rt *Runtime) initScheduler(s Scheduler) {
	if in, ok := s.(initializer); ok {
		rt.inScheduler = true
		defer func() { rt.inScheduler = false }()
		in.Init()
	}
}

func (rt *Runtime) admit(t *Thread) {
	s := rt.Scheduler()
	rt.inScheduler = true
	defer func() { rt.inScheduler = false }()
	s.Admit(t)
}

func (rt *Runtime) remove(t *Thread) {
	s := rt.Scheduler()
	rt.inScheduler = true
	defer func() { rt.inScheduler = false }()
	s.Remove(t)
}

func (rt *Runtime) next() *Thread {
	s := rt.Scheduler()
	rt.inScheduler = true
	defer func() { rt.inScheduler = false }()
	return s.Next()
}

func (rt *Runtime) qlen() int {
	s := rt.Scheduler()
	rt.inScheduler = true
	defer func() { rt.inScheduler = false }()
	return s.Len()
}

// terminate ends the process with the given status.
func (rt *Runtime) terminate(status int) {
	rt.exit(status)
	panic(fmt.Sprintf("lwp: exit function returned (status %d)", status))
}

// fatal reports a broken runtime invariant and ends the process with
// status 1.
func (rt *Runtime) fatal(op, msg string) {
	diag := diagnostics.Diagnostic{
		Op:  "lwp." + op,
		Msg: msg,
	}
	if cur := rt.current; cur != nil {
		diag.TID = uint64(cur.id)
		diag.PC = uintptr(cur.state.Regs.RIP)
	}
	for _, t := range rt.threads.slice() {
		diag.Threads = append(diag.Threads, diagnostics.Thread{
			TID:        uint64(t.id),
			Terminated: t.Terminated(),
			Status:     t.ExitStatus(),
			EntryPC:    t.state.EntryPC(),
		})
	}
	diag.WriteTo(rt.stderr, rt.color)
	rt.terminate(1)
}
