package task

import "unsafe"

// fxsaveAlign is the alignment FXSAVE/FXRSTOR require for their save area.
const fxsaveAlign = 16

// Registers is the saved register file of a context. The general purpose
// registers are laid out in the order the x86-64 swap routine expects them,
// followed by space for the floating point state, including alignment.
//
// Go does not guarantee 16-byte alignment of struct fields, so the FXSAVE
// area is over-allocated and FXSave returns the aligned 512-byte window. The
// window moves when the struct is copied, so use CopyTo instead of assigning
// a Registers value.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	RSP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// RIP is the resume address. For a suspended context this is the PC of
	// the code that switched away from it.
	RIP    uint64
	RFlags uint64

	fxsave [512 + fxsaveAlign - 1]byte
}

// DefaultFPU is the floating point state a new context starts with. It was
// captured from a live FPU right after reset: x87 control word 0x037f, MXCSR
// 0x1f80 with its mask, and the tag bytes the capture happened to contain.
var DefaultFPU = [512]byte{
	0: 0x7f, 1: 0x03,
	24: 0x80, 25: 0x1f, 28: 0xff, 29: 0xff,
	176: 0x25, 177: 0x25, 178: 0x25, 179: 0x25, 180: 0x25, 181: 0x25, 182: 0x25, 183: 0x25,
	184: 0x25, 185: 0x25, 186: 0x25, 187: 0x25, 188: 0x25, 189: 0x25, 190: 0x25, 191: 0x25,
	216: 0xff, 221: 0xff,
}

// FXSave returns the 16-byte aligned FXSAVE area of r.
func (r *Registers) FXSave() []byte {
	addr := uintptr(unsafe.Pointer(&r.fxsave[0]))
	off := (fxsaveAlign - addr%fxsaveAlign) % fxsaveAlign
	return r.fxsave[off : off+512 : off+512]
}

// Reset zeroes all general purpose registers and loads the default FPU image.
func (r *Registers) Reset() {
	*r = Registers{}
	copy(r.FXSave(), DefaultFPU[:])
}

// CopyTo copies the full register file into dst.
func (r *Registers) CopyTo(dst *Registers) {
	fx := dst.fxsave
	*dst = *r
	dst.fxsave = fx
	copy(dst.FXSave(), r.FXSave())
}

// Equal reports whether two register files hold the same state. The FXSAVE
// areas are compared through their aligned windows, since the padding may sit
// at a different offset in each copy.
func (r *Registers) Equal(other *Registers) bool {
	if r.RAX != other.RAX || r.RBX != other.RBX || r.RCX != other.RCX || r.RDX != other.RDX ||
		r.RSI != other.RSI || r.RDI != other.RDI || r.RBP != other.RBP || r.RSP != other.RSP ||
		r.R8 != other.R8 || r.R9 != other.R9 || r.R10 != other.R10 || r.R11 != other.R11 ||
		r.R12 != other.R12 || r.R13 != other.R13 || r.R14 != other.R14 || r.R15 != other.R15 ||
		r.RIP != other.RIP || r.RFlags != other.RFlags {
		return false
	}
	return string(r.FXSave()) == string(other.FXSave())
}
