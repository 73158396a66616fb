// Package udp implements the Cyphal/UDP transport profile: the
// datagram codec, per-(source,transfer) reassembler, subscription
// registry, and the transport core that composes them, mirroring the
// CAN profile in package can but addressed over multicast IP instead of
// a shared bus.
package udp

// Per-profile limits.
const (
	MaxNodeID    = 65534
	MaxSubjectID = 8191
	MaxServiceID = 511

	// TransferIDModulo is effectively unbounded for UDP (a 64-bit
	// counter); wraparound is not a practical concern but modular
	// distance comparisons are still used for consistency with the CAN
	// profile.
	TransferIDModulo = 0 // 2^64, represented as 0 meaning "no wrap".

	// HeaderSize is the fixed Cyphal/UDP frame header length in bytes.
	HeaderSize = 24

	headerVersion = 1
)

// frameIndexEOTBit marks the end-of-transfer fragment in the 4-byte
// frame_index header field; the remaining 31 bits are the 0-based
// fragment index.
const frameIndexEOTBit = 1 << 31

// DefaultMTU is the usable payload size per datagram this profile
// targets; well under common Ethernet MTUs after the 24-byte header and
// IP/UDP overhead.
const DefaultMTU = 1200
