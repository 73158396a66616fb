package udp

import (
	"encoding/binary"

	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport"
)

// dataSpecifier encodes the transfer kind and port id into the header's
// 16-bit data_specifier field: bit15 set marks a service transfer (bit14
// then distinguishes request from response); a clear bit15 marks a
// message transfer using the remaining 15 bits as the subject id.
const (
	dsServiceFlag = 1 << 15
	dsRequestFlag = 1 << 14
	dsPortMask    = 0x01FF // 9 bits, enough for MaxServiceID.
)

func encodeDataSpecifier(kind transport.Kind, port transport.PortID) uint16 {
	switch kind {
	case transport.KindMessage:
		return uint16(port) & 0x7FFF
	case transport.KindRequest:
		return dsServiceFlag | dsRequestFlag | (uint16(port) & dsPortMask)
	default: // KindResponse
		return dsServiceFlag | (uint16(port) & dsPortMask)
	}
}

func decodeDataSpecifier(ds uint16) (kind transport.Kind, port transport.PortID) {
	if ds&dsServiceFlag == 0 {
		return transport.KindMessage, transport.PortID(ds & 0x7FFF)
	}
	if ds&dsRequestFlag != 0 {
		return transport.KindRequest, transport.PortID(ds & dsPortMask)
	}
	return transport.KindResponse, transport.PortID(ds & dsPortMask)
}

// Header is the fixed 24-byte Cyphal/UDP frame header, per spec.md §4.2.
type Header struct {
	Priority    transport.Priority
	Source      transport.NodeID // 16-bit on the wire; Unset encodes as 0xFFFF.
	Destination transport.NodeID
	Kind        transport.Kind
	Port        transport.PortID
	TransferID  transport.TransferID
	FrameIndex  uint32
	EndOfTransfer bool
}

// Marshal encodes h into a fresh 24-byte buffer with a valid header CRC.
func (h Header) Marshal() []byte {
	buf := make([]byte, HeaderSize)
	buf[0] = headerVersion
	buf[1] = byte(h.Priority)
	binary.LittleEndian.PutUint16(buf[2:4], nodeIDWire(h.Source))
	binary.LittleEndian.PutUint16(buf[4:6], nodeIDWire(h.Destination))
	binary.LittleEndian.PutUint16(buf[6:8], encodeDataSpecifier(h.Kind, h.Port))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.TransferID))
	idx := h.FrameIndex & 0x7FFFFFFF
	if h.EndOfTransfer {
		idx |= frameIndexEOTBit
	}
	binary.LittleEndian.PutUint32(buf[16:20], idx)
	binary.LittleEndian.PutUint16(buf[20:22], 0) // reserved user data
	check := crc.Init16.Add(buf[:22])
	binary.LittleEndian.PutUint16(buf[22:24], uint16(check))
	return buf
}

// ParseHeader decodes and validates the fixed header at the front of
// buf, returning the remaining payload slice.
func ParseHeader(buf []byte) (Header, []byte, bool) {
	if len(buf) < HeaderSize {
		return Header{}, nil, false
	}
	if buf[0] != headerVersion {
		return Header{}, nil, false
	}
	want := uint16(crc.Init16.Add(buf[:22]))
	got := binary.LittleEndian.Uint16(buf[22:24])
	if want != got {
		return Header{}, nil, false
	}
	var h Header
	h.Priority = transport.Priority(buf[1])
	h.Source = nodeIDFromWire(binary.LittleEndian.Uint16(buf[2:4]))
	h.Destination = nodeIDFromWire(binary.LittleEndian.Uint16(buf[4:6]))
	h.Kind, h.Port = decodeDataSpecifier(binary.LittleEndian.Uint16(buf[6:8]))
	h.TransferID = transport.TransferID(binary.LittleEndian.Uint64(buf[8:16]))
	idx := binary.LittleEndian.Uint32(buf[16:20])
	h.EndOfTransfer = idx&frameIndexEOTBit != 0
	h.FrameIndex = idx &^ frameIndexEOTBit
	return h, buf[HeaderSize:], true
}

func nodeIDWire(n transport.NodeID) uint16 {
	if n.IsUnset() {
		return 0xFFFF
	}
	return uint16(n)
}

func nodeIDFromWire(v uint16) transport.NodeID {
	if v == 0xFFFF {
		return transport.UnsetNodeID
	}
	return transport.NodeID(v)
}

// Datagram is one outgoing UDP frame ready for media transmission.
type Datagram struct {
	Endpoint transport.MulticastEndpoint
	Payload  []byte // header + fragment data, trailing CRC-32C on the last fragment.
}

// Disassemble fragments one outgoing transfer into the datagrams that
// carry it, per spec.md §4.2. local is the sending node's id; services
// require a non-anonymous local id and a resolved remote.
func Disassemble(meta transport.Metadata, payload []byte, local transport.NodeID, mtu int) ([]Datagram, error) {
	if mtu <= 0 {
		return nil, transport.ErrArgument
	}
	endpoint, err := resolveEndpoint(meta, local)
	if err != nil {
		return nil, err
	}
	if len(payload) <= mtu {
		h := Header{Priority: meta.Priority, Source: local, Destination: destinationOf(meta), Kind: meta.Kind, Port: meta.Port, TransferID: meta.TransferID, FrameIndex: 0, EndOfTransfer: true}
		return []Datagram{{Endpoint: endpoint, Payload: append(h.Marshal(), payload...)}}, nil
	}

	total := len(payload) + 4 // + CRC-32C
	extended := make([]byte, total)
	copy(extended, payload)
	check := crc.Init32.Add(payload).Bytes()
	copy(extended[len(payload):], check[:])

	numFrames := (total + mtu - 1) / mtu
	out := make([]Datagram, 0, numFrames)
	offset := 0
	for i := 0; offset < total; i++ {
		end := offset + mtu
		last := false
		if end >= total {
			end = total
			last = true
		}
		h := Header{
			Priority:      meta.Priority,
			Source:        local,
			Destination:   destinationOf(meta),
			Kind:          meta.Kind,
			Port:          meta.Port,
			TransferID:    meta.TransferID,
			FrameIndex:    uint32(i),
			EndOfTransfer: last,
		}
		out = append(out, Datagram{Endpoint: endpoint, Payload: append(h.Marshal(), extended[offset:end]...)})
		offset = end
	}
	return out, nil
}

func destinationOf(meta transport.Metadata) transport.NodeID {
	if meta.Kind == transport.KindMessage {
		return transport.UnsetNodeID
	}
	return meta.RemoteNodeID
}

func resolveEndpoint(meta transport.Metadata, local transport.NodeID) (transport.MulticastEndpoint, error) {
	switch meta.Kind {
	case transport.KindMessage:
		if meta.Port > MaxSubjectID {
			return transport.MulticastEndpoint{}, transport.ErrArgument
		}
		return MulticastGroupForSubject(meta.Port), nil
	case transport.KindRequest, transport.KindResponse:
		if meta.Port > MaxServiceID || local.IsUnset() || meta.RemoteNodeID.IsUnset() {
			return transport.MulticastEndpoint{}, transport.ErrArgument
		}
		return MulticastGroupForService(meta.Port, meta.RemoteNodeID), nil
	default:
		return transport.MulticastEndpoint{}, transport.ErrArgument
	}
}

// udpPort is the well-known UDP port every Cyphal/UDP multicast group is
// reached on.
const udpPort = 9382

// multicastBase is the base of the IPv4 multicast block this profile
// derives group addresses from (239.0.0.0/8, administratively scoped).
var multicastBase = [4]byte{239, 0, 0, 0}

// MulticastGroupForSubject derives the multicast endpoint for a message
// subject, per spec.md §4.2.
func MulticastGroupForSubject(subject transport.PortID) transport.MulticastEndpoint {
	addr := multicastBase
	addr[1] = 1 // message block
	addr[2] = byte(subject >> 8)
	addr[3] = byte(subject)
	return transport.MulticastEndpoint{Group: addr[:], Port: udpPort}
}

// MulticastGroupForService derives the multicast endpoint for a service
// transfer, keyed on the destination node only, per spec.md §4.2.
// The mapping is a simplified scheme (not the canonical Cyphal/UDP
// address derivation): one group per destination node, distinguished
// from the message block by the second octet.
func MulticastGroupForService(service transport.PortID, dst transport.NodeID) transport.MulticastEndpoint {
	addr := multicastBase
	addr[1] = 2 // service block
	addr[2] = byte(dst >> 8)
	addr[3] = byte(dst)
	_ = service // service id is carried in the header's data_specifier, not the group address.
	return transport.MulticastEndpoint{Group: addr[:], Port: udpPort}
}
