package udp

import (
	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport"
)

// fragment is one received, not-yet-assembled piece of a multi-frame
// transfer.
type fragment struct {
	data []byte
}

// reassembly tracks one in-flight transfer keyed by (source, transfer
// id), tolerating out-of-order fragment arrival up to maxFragments, per
// spec.md §4.2.
type reassembly struct {
	transferID   transport.TransferID
	startTime    transport.TimePoint
	fragments    map[uint32][]byte
	total        int // number of fragments once the EOT fragment has been seen, else 0 (unknown).
	receivedSize int
	active       bool
}

func (r *reassembly) reset(tid transport.TransferID, now transport.TimePoint) {
	r.transferID = tid
	r.startTime = now
	r.fragments = make(map[uint32][]byte)
	r.total = 0
	r.receivedSize = 0
	r.active = true
}

// accept feeds one parsed datagram's header and fragment payload into
// the reassembly state. ok is true only when every fragment 0..N-1 has
// been received and the trailing CRC-32C validates.
func (r *reassembly) accept(now transport.TimePoint, h Header, data []byte, extent int, tidTimeout transport.Duration, maxFragments int) (transport.Transfer, bool) {
	if !r.active || h.TransferID != r.transferID {
		// A fragment of any index for a transfer we hold no state for
		// starts a new reassembly, so fragment 0 need not arrive first.
		r.reset(h.TransferID, now)
	}

	if tidTimeout > 0 && now.Sub(r.startTime) > transport.Duration(tidTimeout) && now.After(r.startTime) {
		r.reset(h.TransferID, now)
	}

	if _, dup := r.fragments[h.FrameIndex]; dup {
		return transport.Transfer{}, false
	}
	if len(r.fragments) >= maxFragments {
		// Budget exhausted: drop the transfer rather than unbounded
		// buffering.
		r.active = false
		return transport.Transfer{}, false
	}
	r.fragments[h.FrameIndex] = append([]byte(nil), data...)
	r.receivedSize += len(data)
	if h.EndOfTransfer {
		r.total = int(h.FrameIndex) + 1
	}

	if r.total == 0 || len(r.fragments) != r.total {
		return transport.Transfer{}, false
	}
	for i := 0; i < r.total; i++ {
		if _, ok := r.fragments[uint32(i)]; !ok {
			return transport.Transfer{}, false
		}
	}

	payload := make([]byte, 0, r.receivedSize)
	for i := 0; i < r.total; i++ {
		payload = append(payload, r.fragments[uint32(i)]...)
	}
	single := r.total == 1
	if !single {
		if len(payload) < 4 {
			r.active = false
			return transport.Transfer{}, false
		}
		body := payload[:len(payload)-4]
		want := payload[len(payload)-4:]
		got := crc.Init32.Add(body).Bytes()
		if got != [4]byte{want[0], want[1], want[2], want[3]} {
			r.active = false
			return transport.Transfer{}, false
		}
		payload = body
	}
	if len(payload) > extent {
		payload = payload[:extent]
	}
	transfer := transport.Transfer{
		Metadata: transport.Metadata{
			Priority:     h.Priority,
			Kind:         h.Kind,
			Port:         h.Port,
			RemoteNodeID: h.Source,
			TransferID:   h.TransferID,
		},
		Timestamp: r.startTime,
		Payload:   append([]byte(nil), payload...),
	}
	r.active = false
	return transfer, true
}
