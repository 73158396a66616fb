package executor

import (
	"testing"

	"github.com/cyphal-go/transport"
)

func TestScheduleOnceFires(t *testing.T) {
	e := New()
	var fired []transport.TimePoint
	h := e.RegisterCallback(func(now transport.TimePoint) { fired = append(fired, now) })
	h.ScheduleOnce(100)

	res := e.SpinOnce(50)
	if len(fired) != 0 {
		t.Fatalf("fired before scheduled time: %v", fired)
	}
	if res.NextExecTime != 100 {
		t.Errorf("NextExecTime = %v, want 100", res.NextExecTime)
	}

	res = e.SpinOnce(100)
	if len(fired) != 1 || fired[0] != 100 {
		t.Fatalf("fired = %v, want [100]", fired)
	}
	if res.WorstLateness != 0 {
		t.Errorf("lateness = %v, want 0", res.WorstLateness)
	}

	e.SpinOnce(200)
	if len(fired) != 1 {
		t.Fatalf("one-shot fired again: %v", fired)
	}
}

func TestScheduleRepeat(t *testing.T) {
	e := New()
	var fired []transport.TimePoint
	h := e.RegisterCallback(func(now transport.TimePoint) { fired = append(fired, now) })
	h.ScheduleRepeat(100, 50)

	e.SpinOnce(100)
	e.SpinOnce(140)
	e.SpinOnce(150)
	e.SpinOnce(250)

	want := []transport.TimePoint{100, 150, 250}
	if len(fired) != len(want) {
		t.Fatalf("fired = %v, want %v", fired, want)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Fatalf("fired[%d] = %v, want %v", i, fired[i], want[i])
		}
	}
}

func TestCancelPreventsFiring(t *testing.T) {
	e := New()
	fired := false
	h := e.RegisterCallback(func(transport.TimePoint) { fired = true })
	h.ScheduleOnce(100)
	h.Cancel()
	e.SpinOnce(200)
	if fired {
		t.Fatal("canceled callback fired")
	}
	if e.Len() != 0 {
		t.Fatalf("expected empty heap after cancel, len=%d", e.Len())
	}
}

func TestFiringOrderByScheduledTimeThenRegistration(t *testing.T) {
	e := New()
	var order []int
	h1 := e.RegisterCallback(func(transport.TimePoint) { order = append(order, 1) })
	h2 := e.RegisterCallback(func(transport.TimePoint) { order = append(order, 2) })
	h3 := e.RegisterCallback(func(transport.TimePoint) { order = append(order, 3) })
	h2.ScheduleOnce(50)
	h1.ScheduleOnce(50)
	h3.ScheduleOnce(10)

	e.SpinOnce(100)
	want := []int{3, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestWorstLatenessAcrossMultipleFirings(t *testing.T) {
	e := New()
	h1 := e.RegisterCallback(func(transport.TimePoint) {})
	h2 := e.RegisterCallback(func(transport.TimePoint) {})
	h1.ScheduleOnce(10)
	h2.ScheduleOnce(90)

	res := e.SpinOnce(100)
	if res.WorstLateness != 90 {
		t.Fatalf("worst lateness = %v, want 90", res.WorstLateness)
	}
}

func TestRescheduleBeforeFiringReplacesPending(t *testing.T) {
	e := New()
	var fired []transport.TimePoint
	h := e.RegisterCallback(func(now transport.TimePoint) { fired = append(fired, now) })
	h.ScheduleOnce(100)
	h.ScheduleOnce(200)

	e.SpinOnce(100)
	if len(fired) != 0 {
		t.Fatalf("fired too early: %v", fired)
	}
	e.SpinOnce(200)
	if len(fired) != 1 || fired[0] != 200 {
		t.Fatalf("fired = %v, want [200]", fired)
	}
}
