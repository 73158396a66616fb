package can

import (
	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport"
)

func crc16(data []byte) crc.CRC16 {
	return crc.Init16.Add(data)
}

// OutFrame is one CAN frame ready for media transmission, produced by
// Disassemble.
type OutFrame struct {
	ExtendedID uint32
	Payload    []byte
}

// Disassemble fragments one outgoing transfer into the CAN frames that
// carry it, per spec.md §4.1. mtu is the configured presentation-layer
// MTU (payload bytes excluding the tail byte, e.g. 7 for classic CAN).
// local is the transmitting node's id, used to compute the wire
// identifier; Unset indicates an anonymous publisher, which is only legal
// for single-frame messages.
func Disassemble(meta transport.Metadata, payload []byte, local transport.NodeID, mtu int) ([]OutFrame, error) {
	if mtu <= 0 {
		return nil, transport.ErrArgument
	}
	id, err := makeWireID(meta, payload, local, mtu)
	if err != nil {
		return nil, err
	}
	if len(payload) <= mtu {
		return []OutFrame{makeSingleFrame(id, meta.TransferID, payload)}, nil
	}
	if local.IsUnset() {
		return nil, transport.ErrArgument
	}
	return makeMultiFrame(id, meta.TransferID, mtu, payload), nil
}

func makeWireID(meta transport.Metadata, payload []byte, local transport.NodeID, mtu int) (uint32, error) {
	switch meta.Kind {
	case transport.KindMessage:
		if meta.Port > MaxSubjectID {
			return 0, transport.ErrArgument
		}
		if !local.IsUnset() {
			return makeMessageID(meta.Priority, meta.Port, local), nil
		}
		if len(payload) > mtu {
			return 0, transport.ErrArgument
		}
		return makeAnonymousMessageID(meta.Priority, meta.Port, pseudoNodeID(payload)), nil
	case transport.KindRequest, transport.KindResponse:
		if meta.Port > MaxServiceID || local.IsUnset() || meta.RemoteNodeID.IsUnset() {
			return 0, transport.ErrArgument
		}
		return makeServiceID(meta.Priority, meta.Kind, meta.Port, local, meta.RemoteNodeID), nil
	default:
		return 0, transport.ErrArgument
	}
}

func makeSingleFrame(id uint32, tid transport.TransferID, payload []byte) OutFrame {
	frameLen := RoundFrameLength(len(payload) + 1)
	buf := make([]byte, frameLen)
	copy(buf, payload)
	buf[frameLen-1] = byte(makeTail(true, true, true, tid))
	return OutFrame{ExtendedID: id, Payload: buf}
}

func makeMultiFrame(id uint32, tid transport.TransferID, mtu int, payload []byte) []OutFrame {
	total := len(payload) + 2 // + CRC-16
	numFrames := (total + mtu - 1) / mtu
	frames := make([]OutFrame, 0, numFrames)
	check := crc16(payload)
	checkBytes := check.Bytes()
	extended := make([]byte, len(payload)+2)
	copy(extended, payload)
	extended[len(payload)] = checkBytes[0]
	extended[len(payload)+1] = checkBytes[1]

	toggle := true
	offset := 0
	for offset < total {
		chunk := mtu
		last := false
		if total-offset <= mtu {
			chunk = total - offset
			last = true
		}
		frameLen := RoundFrameLength(chunk + 1)
		buf := make([]byte, frameLen)
		copy(buf, extended[offset:offset+chunk])
		buf[frameLen-1] = byte(makeTail(offset == 0, last, toggle, tid))
		frames = append(frames, OutFrame{ExtendedID: id, Payload: buf})
		offset += chunk
		toggle = !toggle
	}
	return frames
}

// ParsedFrame is the decoded, but not yet reassembled, content of one
// received CAN frame.
type ParsedFrame struct {
	Priority    transport.Priority
	Kind        transport.Kind
	Port        transport.PortID
	Source      transport.NodeID
	Destination transport.NodeID
	TransferID  transport.TransferID
	Start, End  bool
	Toggle      bool
	Payload     []byte // tail byte excluded
}

// ParseFrame decodes a received CAN frame's identifier and tail byte,
// rejecting anything that violates the wire format, per spec.md §4.1 and
// §6's bit-exact identifier layout.
func ParseFrame(wireID uint32, payload []byte) (ParsedFrame, bool) {
	if len(payload) == 0 {
		return ParsedFrame{}, false
	}
	id := extendedID(wireID)
	var out ParsedFrame
	out.Priority = id.priority()
	out.Source = id.sourceNodeID()

	var valid bool
	if id.isMessage() {
		out.Kind = transport.KindMessage
		out.Port = id.portID()
		if id.isAnonymous() {
			out.Source = transport.UnsetNodeID
		}
		out.Destination = transport.UnsetNodeID
		valid = (uint32(id)&flagReserved23 == 0) && (uint32(id)&flagReserved07 == 0)
	} else {
		if id.isRequest() {
			out.Kind = transport.KindRequest
		} else {
			out.Kind = transport.KindResponse
		}
		out.Port = id.portID()
		out.Destination = id.destinationNodeID()
		valid = (uint32(id)&flagReserved23 == 0) && (out.Source != out.Destination)
	}

	tailPos := len(payload) - 1
	tb := tail(payload[tailPos])
	out.TransferID = tb.transferID()
	out.Start = tb.isStart()
	out.End = tb.isEnd()
	out.Toggle = tb.isToggled()
	out.Payload = payload[:tailPos]

	valid = valid && (!out.Start || out.Toggle)
	valid = valid && ((out.Start && out.End) || !out.Source.IsUnset())
	valid = valid && (len(out.Payload) >= nonLastFramePayloadMin || out.End)
	valid = valid && (len(out.Payload) > 0 || (out.Start && out.End))
	if !valid {
		return ParsedFrame{}, false
	}
	return out, true
}
