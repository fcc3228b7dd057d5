package task

import (
	"encoding/binary"
	"errors"
	"reflect"
	"testing"
	"unsafe"
)

func exitNever(int) { panic("unreachable") }

func entryZero(any) int { return 0 }

func TestBuildShimLayout(t *testing.T) {
	for _, skew := range []int{0, 1, 7, 8, 13} {
		stack := make([]byte, 4096+skew)[skew:]
		var s State
		s.Initialize()
		if err := s.BuildShim(stack, entryZero, "arg", exitNever); err != nil {
			t.Fatalf("skew %d: BuildShim: %v", skew, err)
		}

		base := uintptr(unsafe.Pointer(&stack[0]))
		end := base + uintptr(len(stack))
		frame := uintptr(s.Regs.RBP)
		if frame%16 != 0 {
			t.Errorf("skew %d: frame %#x not 16-byte aligned", skew, frame)
		}
		if frame < base || frame+32 > end {
			t.Errorf("skew %d: frames [%#x, %#x) outside stack [%#x, %#x)", skew, frame, frame+32, base, end)
		}
		if s.Regs.RSP != s.Regs.RBP {
			t.Errorf("skew %d: rsp %#x, want rbp %#x", skew, s.Regs.RSP, s.Regs.RBP)
		}
		off := frame - base
		if got := binary.LittleEndian.Uint64(stack[off:]); got != uint64(frame+16) {
			t.Errorf("skew %d: saved base pointer %#x, want %#x", skew, got, frame+16)
		}
		if got := binary.LittleEndian.Uint64(stack[off+8:]); got != uint64(trampolinePC) {
			t.Errorf("skew %d: return address %#x, want trampoline %#x", skew, got, trampolinePC)
		}
		if got, want := s.EntryPC(), reflect.ValueOf(entryZero).Pointer(); got != want {
			t.Errorf("skew %d: entry pc %#x, want %#x", skew, got, want)
		}
		if !s.CanaryIntact() || !s.frameIntact() {
			t.Errorf("skew %d: fresh shim reported as damaged", skew)
		}
	}
}

func TestBuildShimErrors(t *testing.T) {
	var s State
	s.Initialize()
	if err := s.BuildShim(make([]byte, 16), entryZero, nil, exitNever); !errors.Is(err, ErrStackTooSmall) {
		t.Errorf("small stack: got %v, want %v", err, ErrStackTooSmall)
	}
	if err := s.BuildShim(make([]byte, 4096), nil, nil, exitNever); !errors.Is(err, ErrNoEntry) {
		t.Errorf("nil entry: got %v, want %v", err, ErrNoEntry)
	}
}

func TestCanary(t *testing.T) {
	var s State
	s.Initialize()
	if !s.CanaryIntact() {
		t.Errorf("context without a stack must pass the canary check")
	}
	stack := make([]byte, 1024)
	if err := s.BuildShim(stack, entryZero, nil, exitNever); err != nil {
		t.Fatal(err)
	}
	stack[3] ^= 0xff
	if s.CanaryIntact() {
		t.Errorf("clobbered canary not detected")
	}
}
