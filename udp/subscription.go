package udp

import "github.com/cyphal-go/transport"

// defaultMaxFragments bounds the out-of-order reassembly buffer per
// in-flight transfer, per spec.md §4.2's "per-subscription configured
// buffer budget".
const defaultMaxFragments = 512

// Subscription is the server-side state tracking incoming transfers for
// one (kind, port) over UDP, analogous to can.Subscription but keyed by
// a map (the UDP node-id space is too large for a fixed array).
type Subscription struct {
	Kind         transport.Kind
	Port         transport.PortID
	Extent       int
	Timeout      transport.Duration
	MaxFragments int

	sessions map[transport.NodeID]*reassembly

	latched   *transport.Transfer
	onReceive func(transport.Transfer)
}

func newSubscription(kind transport.Kind, port transport.PortID, extent int, timeout transport.Duration) *Subscription {
	return &Subscription{
		Kind:         kind,
		Port:         port,
		Extent:       extent,
		Timeout:      timeout,
		MaxFragments: defaultMaxFragments,
		sessions:     make(map[transport.NodeID]*reassembly),
	}
}

// Accept feeds one parsed datagram into the matching per-source
// reassembler.
func (sub *Subscription) Accept(now transport.TimePoint, h Header, payload []byte) (transport.Transfer, bool) {
	if h.Source.IsUnset() {
		if !h.EndOfTransfer || h.FrameIndex != 0 {
			return transport.Transfer{}, false
		}
		n := len(payload)
		if n > sub.Extent {
			n = sub.Extent
		}
		return transport.Transfer{
			Metadata: transport.Metadata{
				Priority:     h.Priority,
				Kind:         h.Kind,
				Port:         h.Port,
				RemoteNodeID: transport.UnsetNodeID,
				TransferID:   h.TransferID,
			},
			Timestamp: now,
			Payload:   append([]byte(nil), payload[:n]...),
		}, true
	}
	r, ok := sub.sessions[h.Source]
	if !ok {
		r = &reassembly{}
		sub.sessions[h.Source] = r
	}
	return r.accept(now, h, payload, sub.Extent, sub.Timeout, sub.MaxFragments)
}
