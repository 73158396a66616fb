package transport

// PushResult reports the outcome of a non-blocking media-level frame send.
type PushResult uint8

const (
	// Sent indicates the media accepted the frame.
	Sent PushResult = iota
	// Busy indicates the media could not accept the frame right now; the
	// caller should retry on a later Run.
	Busy
)

// Filter is a CAN hardware acceptance predicate: a frame is accepted iff
// (frame.ID & Mask) == (ExtendedID & Mask).
type Filter struct {
	ExtendedID uint32
	Mask       uint32
}

// CANFrame is one link-layer unit as seen by a CAN media adapter: the
// 29-bit extended id plus up to MTU bytes of payload (the last of which is
// the tail byte; the codec, not the media, interprets it).
type CANFrame struct {
	ExtendedID uint32
	Payload    []byte
	Timestamp  TimePoint
}

// CANMedia is the external collaborator the CAN transport core drives: one
// physical or virtual CAN bus. Implementations must not block; Push and
// Pop report readiness via their return values instead.
type CANMedia interface {
	// MTU returns the number of payload bytes (including the tail byte)
	// this medium carries per frame: 8 for CAN 2.0, up to 64 for CAN FD.
	MTU() int

	// Push attempts to enqueue one frame for transmission. It must not
	// block. Sent means the media has taken ownership of the frame;
	// Busy means the caller should retry on the next Run. A non-nil
	// error is always ErrPlatform-class and means the frame was
	// dropped.
	Push(deadline TimePoint, id uint32, payload []byte) (PushResult, error)

	// Pop attempts to receive one frame into buf, non-blocking. ok is
	// false if no frame is currently available.
	Pop(buf []byte) (frame CANFrame, ok bool, err error)

	// SetFilters installs the given acceptance filters, replacing any
	// previously installed set. Implementations that cannot support
	// hardware filtering should accept every frame and return nil.
	SetFilters(filters []Filter) error
}

// MulticastEndpoint identifies a UDP multicast group and port.
type MulticastEndpoint struct {
	Group []byte // IPv4 or IPv6 multicast address, network byte order.
	Port  uint16
}

// UDPSocket is one open multicast endpoint, either for sending (a tx
// socket bound to no particular group) or receiving (joined to one
// group).
type UDPSocket interface {
	// Send transmits one datagram to the socket's configured
	// destination. Non-blocking; Busy is permitted for congested
	// sockets.
	Send(deadline TimePoint, payload []byte) (PushResult, error)

	// Recv receives one datagram into buf, non-blocking.
	Recv(buf []byte) (n int, ts TimePoint, ok bool, err error)

	// Close releases the underlying OS socket.
	Close() error
}

// UDPMedia is the external collaborator the UDP transport core drives: the
// means of opening sockets bound to Cyphal/UDP multicast groups. Unlike
// CANMedia, UDP addressing is per-socket rather than per-frame.
type UDPMedia interface {
	// MTU returns the number of payload bytes (excluding the fixed
	// 24-byte header) one datagram can carry.
	MTU() int

	// MakeTxSocket opens a socket suitable for sending datagrams to any
	// destination endpoint specified at Send time is not supported by
	// this interface; Cyphal/UDP sends one socket per destination group,
	// so MakeTxSocket takes the destination.
	MakeTxSocket(dest MulticastEndpoint) (UDPSocket, error)

	// MakeRxSocket opens a socket joined to the given multicast group
	// for receiving.
	MakeRxSocket(endpoint MulticastEndpoint) (UDPSocket, error)
}
