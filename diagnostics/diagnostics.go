// Package diagnostics formats fatal runtime errors and prints them in a
// consistent way.
package diagnostics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// A single fatal diagnostic.
type Diagnostic struct {
	// Operation that detected the problem, like "lwp.Yield".
	Op  string
	Msg string

	// Thread that was running, or 0 if there was none.
	TID uint64

	// Where that thread last switched away, if known.
	PC uintptr

	// Snapshot of the threads known to the runtime at the time.
	Threads []Thread
}

// Thread is one line of the thread listing of a diagnostic.
type Thread struct {
	TID        uint64
	Terminated bool
	Status     int

	// Entry function of the thread. Zero for the thread adopted by Start.
	EntryPC uintptr
}

// Stderr returns a writer for standard error that understands ANSI colour
// sequences on every platform, and whether colours should be used at all.
func Stderr() (io.Writer, bool) {
	return colorable.NewColorableStderr(), isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

const (
	colorRed   = "\x1b[1;31m"
	colorFaint = "\x1b[2m"
	colorReset = "\x1b[0m"
)

// Write this diagnostic to the given writer. Colours are only emitted when
// color is set.
func (diag Diagnostic) WriteTo(w io.Writer, color bool) {
	paint := func(c, s string) string {
		if !color {
			return s
		}
		return c + s + colorReset
	}

	where := diag.Op
	if diag.TID != 0 {
		where = fmt.Sprintf("%s (thread %d)", diag.Op, diag.TID)
	}
	fmt.Fprintf(w, "%s %s: %s\n", paint(colorRed, "lwp: fatal error in"), where, diag.Msg)
	if diag.PC != 0 {
		fmt.Fprintf(w, "\tlast switch at %s\n", FuncName(diag.PC))
	}
	if len(diag.Threads) == 0 {
		return
	}

	threads := append([]Thread(nil), diag.Threads...)
	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].TID < threads[j].TID
	})
	fmt.Fprintln(w, "threads:")
	for _, t := range threads {
		state := "live"
		if t.Terminated {
			state = fmt.Sprintf("exited(%d)", t.Status)
		}
		entry := paint(colorFaint, "<adopted>")
		if t.EntryPC != 0 {
			entry = FuncName(t.EntryPC)
		}
		fmt.Fprintf(w, "\t%-6d %-10s %s\n", t.TID, state, entry)
	}
}

// FuncName describes the function containing pc, with its file and line when
// they are known.
func FuncName(pc uintptr) string {
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return fmt.Sprintf("%#x", pc)
	}
	file, line := fn.FileLine(pc)
	if file == "" {
		return fn.Name()
	}
	return fmt.Sprintf("%s (%s:%d)", fn.Name(), filepath.Base(file), line)
}
