package can

import (
	"testing"

	"github.com/cyphal-go/transport"
	"github.com/rs/zerolog"
)

// busMedia is a loopback test double for transport.CANMedia: every Push
// appends to a bus shared by every busMedia pointing at it, and each
// instance tracks its own read cursor, modeling one broadcast CAN bus
// with N independent controllers.
type busMedia struct {
	bus    *[]transport.CANFrame
	cursor int
	mtu    int
}

func (m *busMedia) MTU() int { return m.mtu }

func (m *busMedia) Push(deadline transport.TimePoint, id uint32, payload []byte) (transport.PushResult, error) {
	*m.bus = append(*m.bus, transport.CANFrame{ExtendedID: id, Payload: append([]byte(nil), payload...)})
	return transport.Sent, nil
}

func (m *busMedia) Pop(buf []byte) (transport.CANFrame, bool, error) {
	if m.cursor >= len(*m.bus) {
		return transport.CANFrame{}, false, nil
	}
	f := (*m.bus)[m.cursor]
	m.cursor++
	return f, true, nil
}

func (m *busMedia) SetFilters(filters []transport.Filter) error { return nil }

func newBus() *[]transport.CANFrame {
	bus := make([]transport.CANFrame, 0)
	return &bus
}

func TestTransportEndToEndMessage(t *testing.T) {
	bus := newBus()
	a, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(5), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	b, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(9), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	tx, err := a.MakeMessageTxSession(7)
	if err != nil {
		t.Fatal(err)
	}
	rx, err := b.MakeMessageRxSession(7, 64, transport.Duration(1_000_000))
	if err != nil {
		t.Fatal(err)
	}
	defer rx.Close()

	if err := tx.Send([]byte("hello"), transport.PriorityNominal, transport.MaxTimePoint); err != nil {
		t.Fatal(err)
	}
	if err := a.Run(1000); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(1001); err != nil {
		t.Fatal(err)
	}

	got, ok := rx.Receive()
	if !ok {
		t.Fatal("expected a received transfer")
	}
	if string(got.Payload) != "hello" {
		t.Errorf("payload = %q, want %q", got.Payload, "hello")
	}
	if got.Metadata.RemoteNodeID != 5 {
		t.Errorf("remote node = %v, want 5", got.Metadata.RemoteNodeID)
	}
}

func TestTransportRequestResponseRoundTrip(t *testing.T) {
	bus := newBus()
	client, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(1), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	server, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(2), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	reqTx, err := client.MakeRequestTxSession(3)
	if err != nil {
		t.Fatal(err)
	}
	reqRx, err := server.MakeRequestRxSession(3, 64, transport.Duration(1_000_000))
	if err != nil {
		t.Fatal(err)
	}
	respTx, err := server.MakeResponseTxSession(3)
	if err != nil {
		t.Fatal(err)
	}
	respRx, err := client.MakeResponseRxSession(3, 64, transport.Duration(1_000_000))
	if err != nil {
		t.Fatal(err)
	}

	tid, err := reqTx.Send([]byte("ping"), transport.NodeID(2), transport.PriorityNominal, transport.MaxTimePoint)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Run(1000); err != nil {
		t.Fatal(err)
	}
	if err := server.Run(1001); err != nil {
		t.Fatal(err)
	}

	req, ok := reqRx.Receive()
	if !ok {
		t.Fatal("server did not receive request")
	}
	if string(req.Payload) != "ping" {
		t.Fatalf("request payload = %q", req.Payload)
	}

	if err := respTx.Send([]byte("pong"), req.Metadata.RemoteNodeID, req.Metadata.TransferID, transport.PriorityNominal, transport.MaxTimePoint); err != nil {
		t.Fatal(err)
	}
	if err := server.Run(1002); err != nil {
		t.Fatal(err)
	}
	if err := client.Run(1003); err != nil {
		t.Fatal(err)
	}

	resp, ok := respRx.Receive()
	if !ok {
		t.Fatal("client did not receive response")
	}
	if string(resp.Payload) != "pong" {
		t.Fatalf("response payload = %q", resp.Payload)
	}
	if resp.Metadata.TransferID != tid {
		t.Errorf("response tid = %v, want %v", resp.Metadata.TransferID, tid)
	}
}

func TestTransportFiltersComputedOnSubscribe(t *testing.T) {
	bus := newBus()
	tr, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(4), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rx, err := tr.MakeMessageRxSession(12, 64, transport.Duration(1_000_000))
	if err != nil {
		t.Fatal(err)
	}
	defer rx.Close()
	if !tr.filtersDirty {
		t.Fatal("expected filtersDirty after subscribe")
	}
	if err := tr.Run(0); err != nil {
		t.Fatal(err)
	}
	if tr.filtersDirty {
		t.Fatal("expected filtersDirty cleared after Run")
	}
}

func TestTransportCloseRejectsLiveSessions(t *testing.T) {
	bus := newBus()
	tr, err := New([]transport.CANMedia{&busMedia{bus: bus, mtu: MTUClassic}}, 16, transport.NodeID(4), nil, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	rx, err := tr.MakeMessageRxSession(1, 64, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic closing transport with a live session")
		}
	}()
	_ = rx
	_ = tr.Close()
}
