package udp

import (
	"bytes"
	"testing"

	"github.com/cyphal-go/transport"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		Priority:      transport.PriorityHigh,
		Source:        transport.NodeID(100),
		Destination:   transport.NodeID(200),
		Kind:          transport.KindRequest,
		Port:          42,
		TransferID:    0x0102030405060708,
		FrameIndex:    3,
		EndOfTransfer: true,
	}
	buf := h.Marshal()
	if len(buf) != HeaderSize {
		t.Fatalf("Marshal length = %d, want %d", len(buf), HeaderSize)
	}
	got, rest, ok := ParseHeader(buf)
	if !ok {
		t.Fatal("failed to parse marshaled header")
	}
	if len(rest) != 0 {
		t.Fatalf("unexpected trailing payload: %v", rest)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, h)
	}
}

func TestHeaderRejectsCorruptedCRC(t *testing.T) {
	h := Header{Priority: transport.PriorityNominal, Source: 1, Destination: transport.UnsetNodeID, Kind: transport.KindMessage, Port: 5, EndOfTransfer: true}
	buf := h.Marshal()
	buf[10] ^= 0xFF
	if _, _, ok := ParseHeader(buf); ok {
		t.Fatal("expected corrupted header to fail CRC check")
	}
}

func TestDisassembleSingleDatagram(t *testing.T) {
	meta := transport.Metadata{Priority: transport.PriorityNominal, Kind: transport.KindMessage, Port: 9, TransferID: 1}
	payload := []byte("short")
	dgrams, err := Disassemble(meta, payload, transport.NodeID(1), 1200)
	if err != nil {
		t.Fatal(err)
	}
	if len(dgrams) != 1 {
		t.Fatalf("expected 1 datagram, got %d", len(dgrams))
	}
	h, rest, ok := ParseHeader(dgrams[0].Payload)
	if !ok || !h.EndOfTransfer || h.FrameIndex != 0 {
		t.Fatalf("unexpected header: %+v ok=%v", h, ok)
	}
	if !bytes.Equal(rest, payload) {
		t.Fatalf("payload = %v, want %v", rest, payload)
	}
}

func TestDisassembleReassembleMultiDatagram(t *testing.T) {
	meta := transport.Metadata{Priority: transport.PriorityNominal, Kind: transport.KindMessage, Port: 9, TransferID: 7}
	payload := make([]byte, 5000)
	for i := range payload {
		payload[i] = byte(i)
	}
	dgrams, err := Disassemble(meta, payload, transport.NodeID(1), 1200)
	if err != nil {
		t.Fatal(err)
	}
	if len(dgrams) < 4 {
		t.Fatalf("expected several fragments, got %d", len(dgrams))
	}

	sub := newSubscription(transport.KindMessage, 9, len(payload)+8, 1<<30)
	var got transport.Transfer
	var done bool
	for _, d := range dgrams {
		h, rest, ok := ParseHeader(d.Payload)
		if !ok {
			t.Fatal("failed to parse generated datagram")
		}
		got, done = sub.Accept(1000, h, rest)
	}
	if !done {
		t.Fatal("reassembly did not complete")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatalf("reassembled payload mismatch, len got=%d want=%d", len(got.Payload), len(payload))
	}
}

func TestDisassembleReassembleOutOfOrder(t *testing.T) {
	meta := transport.Metadata{Priority: transport.PriorityNominal, Kind: transport.KindMessage, Port: 9, TransferID: 3}
	payload := make([]byte, 3000)
	for i := range payload {
		payload[i] = byte(i * 3)
	}
	dgrams, err := Disassemble(meta, payload, transport.NodeID(2), 1200)
	if err != nil {
		t.Fatal(err)
	}
	// Reverse arrival order.
	sub := newSubscription(transport.KindMessage, 9, len(payload)+8, 1<<30)
	var got transport.Transfer
	var done bool
	for i := len(dgrams) - 1; i >= 0; i-- {
		h, rest, ok := ParseHeader(dgrams[i].Payload)
		if !ok {
			t.Fatal("failed to parse generated datagram")
		}
		got, done = sub.Accept(1000, h, rest)
	}
	if !done {
		t.Fatal("out-of-order reassembly did not complete")
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Fatal("reassembled payload mismatch after out-of-order delivery")
	}
}

func TestDisassembleAnonymousServiceRejected(t *testing.T) {
	meta := transport.Metadata{Kind: transport.KindRequest, Port: 1, RemoteNodeID: 2}
	_, err := Disassemble(meta, []byte("x"), transport.UnsetNodeID, 1200)
	if err == nil {
		t.Fatal("expected error for anonymous service transfer")
	}
}
