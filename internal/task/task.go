// Package task implements the context switch underneath the lwp runtime.
//
// Every context that was started from a shim runs on its own goroutine. A
// suspended context is parked on a one-slot semaphore, and switching posts the
// semaphore of the target before parking on the semaphore of the caller, so
// exactly one context executes at any time. Resuming a context that has not
// reached its park yet is legal: the post is remembered and the next park
// returns immediately. Releasing a context posts false, which unwinds its
// goroutine instead of resuming it, and waits for the unwind to finish.
package task

import (
	"runtime"
)

// State is the complete saved state of a context: its register file, the
// stack region it owns (if any) and the semaphore it parks on while another
// context runs.
type State struct {
	Regs Registers

	stack []byte

	// Entry bound by BuildShim. fn is nil for a captured context.
	fn   func(any) int
	arg  any
	exit func(int)

	sem      chan bool
	done     chan struct{}
	started  bool
	captured bool
	released bool
}

// Initialize resets s to a fresh, never-run context with zeroed general
// purpose registers and the default FPU image.
func (s *State) Initialize() {
	s.Regs.Reset()
	s.stack = nil
	s.fn = nil
	s.arg = nil
	s.exit = nil
	s.sem = make(chan bool, 1)
	s.done = nil
	s.started = false
	s.captured = false
	s.released = false
}

// Stack returns the stack region bound by BuildShim, or nil for a captured
// context.
func (s *State) Stack() []byte {
	return s.stack
}

// Captured reports whether s adopted an already running flow of control
// instead of being built from a shim.
func (s *State) Captured() bool {
	return s.captured
}

// Swap saves the calling context into save and transfers control to load.
// It returns only when some other context swaps back into save.
//
// When load is nil only the save half is performed: the caller keeps running
// and save becomes a context that can later be resumed at its next park.
func Swap(save, load *State) {
	if save != nil {
		save.Regs.RIP = uint64(callerPC())
		if load == nil {
			save.started = true
			save.captured = true
			return
		}
	}
	if load == nil {
		return
	}
	load.resume()
	if save != nil {
		save.pause()
	}
}

// Release discards a suspended context. A goroutine started from a shim is
// woken up and unwound, running the deferred calls still pending in it, and
// Release returns only after the last of them has finished. A captured
// context is left alone, since its flow of control does not belong to this
// package. Releasing the running context is not allowed.
func (s *State) Release() {
	if s.released {
		return
	}
	owned := s.started && !s.captured
	s.released = true
	s.fn = nil
	s.arg = nil
	s.exit = nil
	s.stack = nil
	if owned {
		done := s.done
		s.post(false)
		<-done
	}
}

func (s *State) resume() {
	if s.released {
		panic("task: resuming a released context")
	}
	if !s.started {
		if s.fn == nil {
			panic("task: resuming a context without a shim")
		}
		s.started = true
		s.done = make(chan struct{})
		go s.trampoline(s.done)
		return
	}
	s.post(true)
}

func (s *State) post(run bool) {
	select {
	case s.sem <- run:
	default:
		panic("task: context resumed twice")
	}
}

// pause parks the calling goroutine until s is resumed. A released context
// never comes back. The state may be reinitialised by then, so only the
// posted value is trusted.
func (s *State) pause() {
	if run := <-s.sem; !run {
		runtime.Goexit()
	}
}

// callerPC returns the PC of the function that called Swap.
func callerPC() uintptr {
	var pcs [1]uintptr
	if runtime.Callers(3, pcs[:]) == 0 {
		return 0
	}
	return pcs[0]
}
