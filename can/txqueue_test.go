package can

import (
	"testing"

	"github.com/cyphal-go/transport"
)

func TestTxQueuePriorityOrder(t *testing.T) {
	q := NewTxQueue(8)
	order := []transport.Priority{
		transport.PriorityNominal,
		transport.PriorityExceptional,
		transport.PriorityLow,
		transport.PriorityHigh,
	}
	for i, p := range order {
		if err := q.Push(1000, p, OutFrame{ExtendedID: uint32(i)}); err != nil {
			t.Fatal(err)
		}
	}
	want := []transport.Priority{
		transport.PriorityExceptional,
		transport.PriorityHigh,
		transport.PriorityNominal,
		transport.PriorityLow,
	}
	for _, w := range want {
		item := q.Peek(0)
		if item == nil {
			t.Fatal("unexpected empty queue")
		}
		if item.priority != w {
			t.Errorf("priority = %v, want %v", item.priority, w)
		}
		q.Pop()
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty at end, len=%d", q.Len())
	}
}

func TestTxQueueFIFOWithinPriority(t *testing.T) {
	q := NewTxQueue(8)
	for i := 0; i < 4; i++ {
		if err := q.Push(1000, transport.PriorityNominal, OutFrame{ExtendedID: uint32(i)}); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 4; i++ {
		item := q.Peek(0)
		if item == nil || item.frame.ExtendedID != uint32(i) {
			t.Fatalf("item %d: got %+v", i, item)
		}
		q.Pop()
	}
}

func TestTxQueueCapacity(t *testing.T) {
	q := NewTxQueue(2)
	if err := q.Push(1000, transport.PriorityNominal, OutFrame{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(1000, transport.PriorityNominal, OutFrame{}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(1000, transport.PriorityNominal, OutFrame{}); err == nil {
		t.Fatal("expected ErrCapacity on third push")
	}
}

func TestTxQueueExpiredItemsDroppedOnPeek(t *testing.T) {
	q := NewTxQueue(4)
	if err := q.Push(100, transport.PriorityNominal, OutFrame{ExtendedID: 1}); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(500, transport.PriorityNominal, OutFrame{ExtendedID: 2}); err != nil {
		t.Fatal(err)
	}
	item := q.Peek(300)
	if item == nil || item.frame.ExtendedID != 2 {
		t.Fatalf("expected the non-expired item, got %+v", item)
	}
}

// TestTxQueueDeadlineEqualToNowIsDropped pins down testable property 6: a
// deadline exactly equal to now has already expired, not one tick later.
func TestTxQueueDeadlineEqualToNowIsDropped(t *testing.T) {
	q := NewTxQueue(4)
	if err := q.Push(100, transport.PriorityNominal, OutFrame{ExtendedID: 1}); err != nil {
		t.Fatal(err)
	}
	if item := q.Peek(100); item != nil {
		t.Fatalf("expected deadline == now to be dropped, got %+v", item)
	}
	if q.Len() != 0 {
		t.Fatalf("queue not drained, len=%d", q.Len())
	}
}
