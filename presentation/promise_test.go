package presentation

import (
	"errors"
	"testing"

	"github.com/cyphal-go/transport"
)

type fakeSender struct {
	nextTID transport.TransferID
	sent    []transport.NodeID
	err     error
}

func (s *fakeSender) Send(payload []byte, remote transport.NodeID, priority transport.Priority, deadline transport.TimePoint) (transport.TransferID, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.sent = append(s.sent, remote)
	tid := s.nextTID
	s.nextTID++
	return tid, nil
}

type fakeReceiver struct {
	onReceive func(transport.Transfer)
}

func (r *fakeReceiver) SetOnReceive(fn func(transport.Transfer)) { r.onReceive = fn }

func TestClientFulfillsPromiseOnResponse(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)

	p, err := c.Call([]byte("ping"), transport.NodeID(2), transport.PriorityNominal, 1000, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if p.State() != Pending {
		t.Fatalf("state = %v, want pending", p.State())
	}
	if c.Pending() != 1 {
		t.Fatalf("pending = %d, want 1", c.Pending())
	}

	rx.onReceive(transport.Transfer{
		Metadata: transport.Metadata{TransferID: 0, RemoteNodeID: 2},
		Payload:  []byte("pong"),
	})

	if p.State() != Fulfilled {
		t.Fatalf("state = %v, want fulfilled", p.State())
	}
	tr, gerr, ok := p.FetchResult()
	if !ok || gerr != nil || string(tr.Payload) != "pong" {
		t.Fatalf("FetchResult = %v, %v, %v", tr, gerr, ok)
	}
	if _, _, ok := p.FetchResult(); ok {
		t.Fatal("second FetchResult should return ok=false forever")
	}
	if c.Pending() != 0 {
		t.Fatalf("pending = %d, want 0 after fulfillment", c.Pending())
	}
}

func TestClientExpiresPromiseOnDeadline(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)

	p, err := c.Call([]byte("ping"), transport.NodeID(2), transport.PriorityNominal, 1000, 1100)
	if err != nil {
		t.Fatal(err)
	}
	c.Run(1050)
	if p.State() != Pending {
		t.Fatal("expired too early")
	}
	c.Run(1101)
	if p.State() != Expired {
		t.Fatalf("state = %v, want expired", p.State())
	}
	_, gerr, ok := p.FetchResult()
	if !ok || !errors.Is(gerr, transport.ErrExpired) {
		t.Fatalf("FetchResult = %v, %v", gerr, ok)
	}
}

func TestSetCallbackFiresSynchronouslyWhenAlreadyLatched(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)
	p, _ := c.Call([]byte("x"), 2, transport.PriorityNominal, 0, 100)

	rx.onReceive(transport.Transfer{Metadata: transport.Metadata{TransferID: 0}, Payload: []byte("y")})

	var got []byte
	fired := 0
	p.SetCallback(func(tr transport.Transfer, err error) {
		got = tr.Payload
		fired++
	})
	if fired != 1 || string(got) != "y" {
		t.Fatalf("fired=%d got=%q", fired, got)
	}

	// Installing again after consumption must have no effect.
	p.SetCallback(func(tr transport.Transfer, err error) { fired++ })
	if fired != 1 {
		t.Fatalf("callback fired again after consumption: fired=%d", fired)
	}
}

func TestCallbackInstalledBeforeFulfillmentFiresOnce(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)
	p, _ := c.Call([]byte("x"), 2, transport.PriorityNominal, 0, 100)

	fired := 0
	p.SetCallback(func(tr transport.Transfer, err error) { fired++ })
	if fired != 0 {
		t.Fatal("fired before response arrived")
	}
	rx.onReceive(transport.Transfer{Metadata: transport.Metadata{TransferID: 0}, Payload: []byte("y")})
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if _, _, ok := p.FetchResult(); ok {
		t.Fatal("result should already be consumed by the callback")
	}
}

type typedValue struct{ n int }

func decodeTypedValue(payload []byte) (typedValue, error) {
	if len(payload) != 1 {
		return typedValue{}, errors.New("bad length")
	}
	return typedValue{n: int(payload[0])}, nil
}

func TestTypedResponsePromiseDecodes(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)
	raw, _ := c.Call([]byte("x"), 2, transport.PriorityNominal, 0, 100)
	typed := NewResponsePromise[typedValue](raw, decodeTypedValue)

	rx.onReceive(transport.Transfer{Metadata: transport.Metadata{TransferID: 0}, Payload: []byte{42}})

	v, err, ok := typed.FetchResult()
	if !ok || err != nil || v.n != 42 {
		t.Fatalf("FetchResult = %+v, %v, %v", v, err, ok)
	}
}

func TestTypedResponsePromiseDecodeFailureIsErrDecode(t *testing.T) {
	tx := &fakeSender{}
	rx := &fakeReceiver{}
	c := NewClient(tx, rx)
	raw, _ := c.Call([]byte("x"), 2, transport.PriorityNominal, 0, 100)
	typed := NewResponsePromise[typedValue](raw, decodeTypedValue)

	rx.onReceive(transport.Transfer{Metadata: transport.Metadata{TransferID: 0}, Payload: []byte{1, 2, 3}})

	_, err, ok := typed.FetchResult()
	if !ok || !errors.Is(err, transport.ErrDecode) {
		t.Fatalf("FetchResult err = %v, ok = %v, want ErrDecode", err, ok)
	}
}
