// Package executor implements the single-threaded cooperative scheduler
// described in spec.md §4.6: callbacks register once, schedule
// themselves for a one-shot or repeating future time, and the owning
// application drives progress entirely by calling SpinOnce — no
// background goroutine ever touches a callback's state.
package executor

import (
	"container/heap"

	"github.com/cyphal-go/transport"
)

// Callback is invoked by SpinOnce when its scheduled time has elapsed.
// approxNow is the time passed to SpinOnce, not a fresh clock read;
// implementations must not block.
type Callback func(approxNow transport.TimePoint)

// timer is one scheduled invocation of a registered callback.
type timer struct {
	fn       Callback
	at       transport.TimePoint
	period   transport.Duration // 0 for one-shot.
	seq      int64
	canceled bool
	index    int // heap index, maintained by container/heap for O(log n) cancel.
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timerHeap) Push(x any) {
	tm := x.(*timer)
	tm.index = len(*h)
	*h = append(*h, tm)
}
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	tm := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	tm.index = -1
	return tm
}

// Executor is the scheduler core, per spec.md §4.6. The zero value is
// not ready to use; construct with New.
type Executor struct {
	heap timerHeap
	seq  int64
}

// New returns an empty, ready-to-use executor.
func New() *Executor {
	return &Executor{}
}

// Handle identifies one registered callback's schedule. Dropping the
// handle without calling Cancel leaves the timer pending (Go has no
// destructors); callers that need cancel-on-drop must call Cancel
// explicitly, e.g. from a session's Close.
type Handle struct {
	ex *Executor
	tm *timer
}

// RegisterCallback registers fn, returning a handle used to schedule or
// cancel its future invocations. The callback does not run until one of
// ScheduleOnce/ScheduleRepeat is called on the handle.
func (e *Executor) RegisterCallback(fn Callback) Handle {
	tm := &timer{fn: fn, canceled: true, seq: e.seq}
	e.seq++
	return Handle{ex: e, tm: tm}
}

// ScheduleOnce arms the handle's callback to fire exactly once at at,
// replacing any previously scheduled (but not yet fired) invocation.
func (h Handle) ScheduleOnce(at transport.TimePoint) {
	h.arm(at, 0)
}

// ScheduleRepeat arms the handle's callback to fire at start, then every
// period thereafter, until canceled.
func (h Handle) ScheduleRepeat(start transport.TimePoint, period transport.Duration) {
	h.arm(start, period)
}

func (h Handle) arm(at transport.TimePoint, period transport.Duration) {
	ex := h.ex
	tm := h.tm
	if !tm.canceled && tm.index >= 0 {
		heap.Remove(&ex.heap, tm.index)
	}
	tm.at = at
	tm.period = period
	tm.canceled = false
	heap.Push(&ex.heap, tm)
}

// Cancel disarms the handle's callback; it will not fire again until
// rescheduled.
func (h Handle) Cancel() {
	tm := h.tm
	if tm.canceled {
		return
	}
	tm.canceled = true
	if tm.index >= 0 {
		heap.Remove(&h.ex.heap, tm.index)
	}
}

// SpinResult reports the outcome of one SpinOnce call.
type SpinResult struct {
	// WorstLateness is the largest (now - scheduledTime) observed among
	// the callbacks fired this call, or 0 if none fired late.
	WorstLateness transport.Duration
	// NextExecTime is the earliest still-pending scheduled time, or
	// transport.MaxTimePoint if no timer is armed.
	NextExecTime transport.TimePoint
}

// SpinOnce fires every callback whose scheduled time is at or before
// now, in scheduled-time order (registration order breaks ties), per
// spec.md §4.6. Repeating callbacks are rescheduled for their next
// period before returning; a repeating callback that is already late by
// more than one period is rescheduled to the next period after now
// (it does not fire a catch-up burst).
func (e *Executor) SpinOnce(now transport.TimePoint) SpinResult {
	var worst transport.Duration
	for e.heap.Len() > 0 && e.heap[0].at <= now {
		tm := heap.Pop(&e.heap).(*timer)
		if tm.canceled {
			continue
		}
		lateness := now.Sub(tm.at)
		if lateness > worst {
			worst = lateness
		}
		tm.fn(now)
		if tm.period > 0 && !tm.canceled {
			next := tm.at + transport.TimePoint(tm.period)
			for next <= now {
				next += transport.TimePoint(tm.period)
			}
			tm.at = next
			heap.Push(&e.heap, tm)
		}
	}
	next := transport.MaxTimePoint
	if e.heap.Len() > 0 {
		next = e.heap[0].at
	}
	return SpinResult{WorstLateness: worst, NextExecTime: next}
}

// Len reports the number of armed timers.
func (e *Executor) Len() int { return e.heap.Len() }

// Poller is the external collaborator that blocks on I/O readiness, per
// spec.md §4.6/§6: the OS-specific event-wait primitive (select/poll/
// epoll, or a platform socket wrapper's equivalent). The core names it
// only through this interface; no implementation lives in this package.
type Poller interface {
	// PollFor blocks until an awaitable resource becomes ready or
	// timeout elapses (a negative timeout blocks indefinitely). It
	// returns promptly if interrupted by the underlying OS primitive.
	PollFor(timeout transport.Duration) error
}

// PollAwaitableResourcesFor delegates to p, the application-supplied
// Poller, so the caller's run loop can choose its own next timeout
// (typically SpinOnce's NextExecTime minus the current time) between
// otherwise non-blocking Run/SpinOnce calls.
func PollAwaitableResourcesFor(p Poller, timeout transport.Duration) error {
	if p == nil {
		return nil
	}
	return p.PollFor(timeout)
}
