package task

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestSwapSymmetry(t *testing.T) {
	var main, worker State
	main.Initialize()
	worker.Initialize()
	Swap(&main, nil)
	if !main.Captured() {
		t.Fatal("save-only swap did not capture the caller")
	}

	var trace []int
	err := worker.BuildShim(make([]byte, 4096), func(arg any) int {
		for i := 0; ; i++ {
			trace = append(trace, arg.(int)+i)
			Swap(&worker, &main)
		}
	}, 100, exitNever)
	if err != nil {
		t.Fatal(err)
	}

	// Live values on the caller's side must survive every round trip.
	locals := [4]float64{math.Pi, math.E, math.Sqrt2, -0.5}
	want := locals

	var first Registers
	for i := 0; i < 4; i++ {
		Swap(&main, &worker)
		if i == 0 {
			main.Regs.CopyTo(&first)
			continue
		}
		if !main.Regs.Equal(&first) {
			t.Errorf("round %d: register file of the caller changed across A->B->A", i)
		}
	}
	if locals != want {
		t.Errorf("locals changed: got %v, want %v", locals, want)
	}
	if !reflect.DeepEqual(trace, []int{100, 101, 102, 103}) {
		t.Errorf("worker trace %v, want [100 101 102 103]", trace)
	}
	worker.Release()
}

func TestTrampolineFunnelsReturnValue(t *testing.T) {
	var main, worker State
	main.Initialize()
	worker.Initialize()
	Swap(&main, nil)

	got := -1
	err := worker.BuildShim(make([]byte, 4096), func(arg any) int {
		return arg.(int) * 2
	}, 21, func(status int) {
		got = status
		Swap(&worker, &main)
	})
	if err != nil {
		t.Fatal(err)
	}
	Swap(&main, &worker)
	if got != 42 {
		t.Errorf("exit received %d, want 42", got)
	}
	worker.Release()
	worker.Release()
}

func TestResumeReleasedPanics(t *testing.T) {
	var s State
	s.Initialize()
	if err := s.BuildShim(make([]byte, 256), entryZero, nil, exitNever); err != nil {
		t.Fatal(err)
	}
	s.Release()
	defer func() {
		if recover() == nil {
			t.Errorf("resuming a released context did not panic")
		}
	}()
	Swap(nil, &s)
}

func TestReleaseRunsPendingDefers(t *testing.T) {
	var main, worker State
	main.Initialize()
	worker.Initialize()
	Swap(&main, nil)

	var order []string
	nested := func() {
		defer func() { order = append(order, "inner") }()
		Swap(&worker, &main)
		order = append(order, "resumed")
	}
	err := worker.BuildShim(make([]byte, 4096), func(any) int {
		defer func() {
			time.Sleep(10 * time.Millisecond)
			order = append(order, "outer")
		}()
		nested()
		return 0
	}, nil, exitNever)
	if err != nil {
		t.Fatal(err)
	}
	Swap(&main, &worker)

	// The worker is parked inside nested. Release must not return before
	// both pending defers have run on the worker's goroutine.
	worker.Release()
	order = append(order, "released")
	want := []string{"inner", "outer", "released"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order %v, want %v", order, want)
	}
}
