package can

import "github.com/cyphal-go/transport"

// extendedID is a 29-bit CAN identifier, decoded lazily via its accessor
// methods the way the teacher's ecID type does.
type extendedID uint32

func (id extendedID) priority() transport.Priority {
	return transport.Priority(id>>offsetPriority) & 0x7
}

func (id extendedID) sourceNodeID() transport.NodeID {
	return transport.NodeID(id & MaxNodeID)
}

func (id extendedID) isMessage() bool { return id&flagServiceNotMessage == 0 }

func (id extendedID) isRequest() bool {
	return !id.isMessage() && id&flagRequestNotResponse != 0
}

func (id extendedID) isAnonymous() bool { return id&flagAnonymousMessage != 0 }

func (id extendedID) destinationNodeID() transport.NodeID {
	return transport.NodeID(id>>offsetDstNodeID) & MaxNodeID
}

func (id extendedID) portID() transport.PortID {
	if id.isMessage() {
		return transport.PortID(id>>offsetSubjectID) & MaxSubjectID
	}
	return transport.PortID(id>>offsetServiceID) & MaxServiceID
}

// makeMessageID builds the 29-bit identifier for a broadcast message from
// a non-anonymous source.
func makeMessageID(prio transport.Priority, subject transport.PortID, src transport.NodeID) uint32 {
	out := uint32(src) | uint32(subject)<<offsetSubjectID
	out |= uint32(prio) << offsetPriority
	return out & extendedIDMask
}

// makeAnonymousMessageID builds the 29-bit identifier for a broadcast
// message from an anonymous source, where the "source node id" field is
// instead a pseudo-id derived from the payload (CRC of the whole payload),
// per the Cyphal/CAN Specification's anonymous-message provision.
func makeAnonymousMessageID(prio transport.Priority, subject transport.PortID, pseudoID transport.NodeID) uint32 {
	out := makeMessageID(prio, subject, pseudoID) | flagAnonymousMessage
	return out & extendedIDMask
}

// makeServiceID builds the 29-bit identifier for a service transfer
// (request or response).
func makeServiceID(prio transport.Priority, kind transport.Kind, service transport.PortID, src, dst transport.NodeID) uint32 {
	out := uint32(src) | uint32(dst)<<offsetDstNodeID
	out |= uint32(service) << offsetServiceID
	out |= flagServiceNotMessage
	if kind == transport.KindRequest {
		out |= flagRequestNotResponse
	}
	out |= uint32(prio) << offsetPriority
	return out & extendedIDMask
}

// pseudoNodeID derives the anonymous-message pseudo source id from the
// payload, matching the teacher's newNodeID helper
// (CRC-16 of the payload, masked to the node-id field width).
func pseudoNodeID(payload []byte) transport.NodeID {
	c := crc16(payload)
	return transport.NodeID(c) & MaxNodeID
}
