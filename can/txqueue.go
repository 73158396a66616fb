package can

import (
	"container/heap"

	"github.com/cyphal-go/transport"
)

// txItem is one queued outbound frame, per spec.md §3's TxQueueItem.
type txItem struct {
	deadline transport.TimePoint
	priority transport.Priority
	seq      int64 // insertion order, for FIFO tie-breaking within a priority
	frame    OutFrame
}

// txHeap implements container/heap.Interface ordered highest-priority
// first, ties broken by insertion order — the same shape as the
// retrieved pack's generic priority queue (dnp3-go's internal/queue),
// specialized to Cyphal's fixed 8-level priority and deadline semantics.
type txHeap []*txItem

func (h txHeap) Len() int { return len(h) }

func (h txHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority // lower numeric value = more urgent
	}
	return h[i].seq < h[j].seq
}

func (h txHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *txHeap) Push(x any) { *h = append(*h, x.(*txItem)) }

func (h *txHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TxQueue is a per-media priority queue of ready frames with deadlines,
// per spec.md §4.3. Its capacity is fixed at construction.
type TxQueue struct {
	cap  int
	heap txHeap
	seq  int64
}

// NewTxQueue returns an empty queue that rejects pushes once it holds
// capacity items.
func NewTxQueue(capacity int) *TxQueue {
	return &TxQueue{cap: capacity}
}

// Len returns the number of items currently queued.
func (q *TxQueue) Len() int { return q.heap.Len() }

// Push enqueues one frame with the given deadline and priority. It
// returns ErrCapacity if the queue is already at capacity.
func (q *TxQueue) Push(deadline transport.TimePoint, priority transport.Priority, frame OutFrame) error {
	if q.heap.Len() >= q.cap {
		return transport.ErrCapacity
	}
	heap.Push(&q.heap, &txItem{deadline: deadline, priority: priority, seq: q.seq, frame: frame})
	q.seq++
	return nil
}

// Peek returns the highest-priority item that has not yet expired,
// dropping (and skipping) any expired items encountered ahead of it —
// "deadlines earlier than now cause the item to be silently dropped on
// peek," per spec.md §4.3. A deadline exactly equal to now has also
// expired: §4.4's run loop only keeps pushing "while top of queue has
// deadline > now."
func (q *TxQueue) Peek(now transport.TimePoint) *txItem {
	for q.heap.Len() > 0 {
		top := q.heap[0]
		if !top.deadline.After(now) {
			heap.Pop(&q.heap)
			continue
		}
		return top
	}
	return nil
}

// Pop removes and discards the current top item (as returned by the most
// recent Peek); it must only be called when Peek returned non-nil.
func (q *TxQueue) Pop() {
	if q.heap.Len() > 0 {
		heap.Pop(&q.heap)
	}
}

// Drain empties the queue, releasing every held frame buffer.
func (q *TxQueue) Drain() {
	q.heap = nil
}
