package lwp

import "sync"

var (
	defaultOnce    sync.Once
	defaultRuntime *Runtime
)

// Default returns the process-wide runtime used by the package-level
// functions. It is created with DefaultConfig on first use. Like any
// Runtime it belongs to the flow of control that starts it; programs that
// need more than one runtime, or tests, should use New instead.
func Default() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = New(DefaultConfig())
	})
	return defaultRuntime
}

// Create calls Create on the Default runtime.
func Create(fn Func, arg any) (TID, error) {
	return Default().Create(fn, arg)
}

// Start calls Start on the Default runtime.
func Start() error {
	return Default().Start()
}

// Yield calls Yield on the Default runtime.
func Yield() {
	Default().Yield()
}

// Exit calls Exit on the Default runtime.
func Exit(status int) {
	Default().Exit(status)
}

// Wait calls Wait on the Default runtime.
func Wait() (TID, int) {
	return Default().Wait()
}

// CurrentID calls CurrentID on the Default runtime.
func CurrentID() TID {
	return Default().CurrentID()
}

// Lookup calls Lookup on the Default runtime.
func Lookup(id TID) *Thread {
	return Default().Lookup(id)
}

// GetScheduler returns the active scheduler of the Default runtime.
func GetScheduler() Scheduler {
	return Default().Scheduler()
}

// SetScheduler calls SetScheduler on the Default runtime.
func SetScheduler(s Scheduler) {
	Default().SetScheduler(s)
}
