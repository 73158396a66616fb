package can

import "github.com/cyphal-go/transport"

// Subscription is the server-side state tracking incoming transfers for
// one (kind, port), per spec.md §3's "Subscription (RX)" data model: one
// reassembly session per possible source node, an extent (the maximum
// payload size the application is willing to receive), and a transfer-id
// timeout.
type Subscription struct {
	Kind     transport.Kind
	Port     transport.PortID
	Extent   int
	Timeout  transport.Duration
	sessions [MaxNodeID + 1]session

	// Delivery state for the owning RX session, per spec.md §4.5:
	// exactly one of latched (poll) or onReceive (callback) is in
	// effect at a time; installing a callback consumes any latched
	// value.
	latched   *transport.Transfer
	onReceive func(transport.Transfer)
}

// Accept feeds one parsed CAN frame addressed to this subscription's port
// into the matching per-source reassembler. ok is true only when the
// frame completed a transfer.
func (sub *Subscription) Accept(now transport.TimePoint, mediaIdx int, f ParsedFrame) (transport.Transfer, bool) {
	if f.Source.IsUnset() {
		// Anonymous transfers are always single-frame; no session state
		// is needed or possible since there is no fixed per-source slot
		// for an anonymous sender.
		if !f.Start || !f.End {
			return transport.Transfer{}, false
		}
		n := len(f.Payload)
		if n > sub.Extent {
			n = sub.Extent
		}
		return transport.Transfer{
			Metadata: transport.Metadata{
				Priority:     f.Priority,
				Kind:         f.Kind,
				Port:         f.Port,
				RemoteNodeID: transport.UnsetNodeID,
				TransferID:   f.TransferID,
			},
			Timestamp: now,
			Payload:   append([]byte(nil), f.Payload[:n]...),
		}, true
	}
	if uint32(f.Source) > MaxNodeID {
		return transport.Transfer{}, false
	}
	return sub.sessions[f.Source].accept(now, mediaIdx, f, sub.Extent, sub.Timeout)
}
