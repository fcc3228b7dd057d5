package task

import (
	"encoding/binary"
	"errors"
	"reflect"
	"unsafe"
)

// stackCanary is written to the lowest word of every stack so that an
// overflow can be detected on the next switch.
const stackCanary = 0x670c1333b83bf575

const (
	frameAlign = 16
	wordSize   = 8

	// canary, worst-case alignment slack and the two synthetic frames
	minStackSize = wordSize + frameAlign - 1 + 2*frameAlign
)

// ErrStackTooSmall is returned by BuildShim for a region that cannot hold
// the canary and the initial frames.
var ErrStackTooSmall = errors.New("task: stack too small for initial frames")

// ErrNoEntry is returned by BuildShim when fn is nil.
var ErrNoEntry = errors.New("task: nil entry or exit function")

var trampolinePC uintptr

func init() {
	trampolinePC = reflect.ValueOf((*State).trampoline).Pointer()
}

// BuildShim prepares s to start fn(arg) on its first resume, using stack as
// its stack region. The region receives the canary at its lowest address and
// two frames just below its highest 16-byte aligned address: the frame of the
// wrapper that calls fn, and under it the frame the swap routine tears down
// on its first return, whose saved base pointer is the wrapper frame and
// whose return address is the trampoline. RBP and RSP point at that frame,
// RDI holds the entry function and RSI the argument slot.
//
// The trampoline hands the value fn returns to exit, so a thread function may
// simply return its status. exit must not return.
func (s *State) BuildShim(stack []byte, fn func(any) int, arg any, exit func(int)) error {
	if fn == nil || exit == nil {
		return ErrNoEntry
	}
	if len(stack) < minStackSize {
		return ErrStackTooSmall
	}
	s.stack = stack
	s.fn = fn
	s.arg = arg
	s.exit = exit
	binary.LittleEndian.PutUint64(stack, stackCanary)

	base := uintptr(unsafe.Pointer(&stack[0]))
	top := (base + uintptr(len(stack))) &^ (frameAlign - 1)
	wrapFrame := top - frameAlign
	switchFrame := wrapFrame - frameAlign

	s.putWord(switchFrame, uint64(wrapFrame))
	s.putWord(switchFrame+wordSize, uint64(trampolinePC))

	s.Regs.RBP = uint64(switchFrame)
	s.Regs.RSP = uint64(switchFrame)
	s.Regs.RDI = uint64(reflect.ValueOf(fn).Pointer())
	s.Regs.RSI = uint64(uintptr(unsafe.Pointer(&s.arg)))
	return nil
}

// CanaryIntact reports whether the lowest word of the stack still holds the
// canary. A context without a stack region always passes.
func (s *State) CanaryIntact() bool {
	if s.stack == nil {
		return true
	}
	return binary.LittleEndian.Uint64(s.stack) == stackCanary
}

// EntryPC returns the PC of the function bound by BuildShim, or 0.
func (s *State) EntryPC() uintptr {
	return uintptr(s.Regs.RDI)
}

// trampoline is where a context built by BuildShim starts executing. done
// is closed once the goroutine has fully unwound.
func (s *State) trampoline(done chan struct{}) {
	defer close(done)
	if !s.frameIntact() {
		panic("task: initial frame was overwritten before the first resume")
	}
	s.exit(s.fn(s.arg))
	panic("task: exit returned to the trampoline")
}

func (s *State) frameIntact() bool {
	frame := uintptr(s.Regs.RBP)
	return s.CanaryIntact() &&
		s.word(frame+wordSize) == uint64(trampolinePC) &&
		s.word(frame) == uint64(frame+frameAlign)
}

func (s *State) offset(addr uintptr) uintptr {
	return addr - uintptr(unsafe.Pointer(&s.stack[0]))
}

func (s *State) putWord(addr uintptr, v uint64) {
	binary.LittleEndian.PutUint64(s.stack[s.offset(addr):], v)
}

func (s *State) word(addr uintptr) uint64 {
	return binary.LittleEndian.Uint64(s.stack[s.offset(addr):])
}
