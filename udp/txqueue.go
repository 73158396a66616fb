package udp

import (
	"container/heap"

	"github.com/cyphal-go/transport"
)

// txItem is one queued outbound datagram, mirroring can.txItem.
type txItem struct {
	deadline transport.TimePoint
	priority transport.Priority
	seq      int64
	dgram    Datagram
}

type txHeap []*txItem

func (h txHeap) Len() int { return len(h) }
func (h txHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].seq < h[j].seq
}
func (h txHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *txHeap) Push(x any)   { *h = append(*h, x.(*txItem)) }
func (h *txHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TxQueue is a priority queue of ready datagrams with deadlines, per
// spec.md §4.3, specialized to the UDP profile's per-destination
// sockets (one TxQueue per medium, as with the CAN profile).
type TxQueue struct {
	cap  int
	heap txHeap
	seq  int64
}

func NewTxQueue(capacity int) *TxQueue {
	return &TxQueue{cap: capacity}
}

func (q *TxQueue) Len() int { return q.heap.Len() }

func (q *TxQueue) Push(deadline transport.TimePoint, priority transport.Priority, dgram Datagram) error {
	if q.heap.Len() >= q.cap {
		return transport.ErrCapacity
	}
	heap.Push(&q.heap, &txItem{deadline: deadline, priority: priority, seq: q.seq, dgram: dgram})
	q.seq++
	return nil
}

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

func (q *TxQueue) Pop() {
	if q.heap.Len() > 0 {
		heap.Pop(&q.heap)
	}
}

func (q *TxQueue) Drain() {
	q.heap = nil
}
