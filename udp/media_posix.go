//go:build linux || darwin

package udp

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/cyphal-go/transport"
)

// PosixMedia is a real UDPMedia backed by the host's IPv4 multicast
// stack: one interface, joined as needed per subscribed group, using
// golang.org/x/net/ipv4's PacketConn for the group-membership and
// outbound-interface control a plain net.UDPConn does not expose.
type PosixMedia struct {
	iface *net.Interface
	mtu   int
}

// NewPosixMedia binds to ifaceName (e.g. "eth0"); an empty name lets the
// kernel pick the default multicast-capable interface.
func NewPosixMedia(ifaceName string, mtu int) (*PosixMedia, error) {
	var iface *net.Interface
	if ifaceName != "" {
		found, err := net.InterfaceByName(ifaceName)
		if err != nil {
			return nil, fmt.Errorf("udp: posix media: %w", err)
		}
		iface = found
	}
	if mtu <= 0 {
		mtu = DefaultMTU
	}
	return &PosixMedia{iface: iface, mtu: mtu}, nil
}

func (m *PosixMedia) MTU() int { return m.mtu }

// MakeTxSocket opens a socket for sending to dest's multicast group.
// Cyphal/UDP has no shared send-to-anywhere socket: one destination, one
// socket, matching transport.UDPMedia's contract.
func (m *PosixMedia) MakeTxSocket(dest transport.MulticastEndpoint) (transport.UDPSocket, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("udp: make tx socket: %w", err)
	}
	pc := ipv4.NewPacketConn(conn)
	if m.iface != nil {
		if err := pc.SetMulticastInterface(m.iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("udp: set multicast interface: %w", err)
		}
	}
	if err := pc.SetMulticastTTL(1); err != nil {
		conn.Close()
		return nil, fmt.Errorf("udp: set multicast ttl: %w", err)
	}
	dst := &net.UDPAddr{IP: net.IP(dest.Group), Port: int(dest.Port)}
	return &posixSocket{conn: conn, dst: dst}, nil
}

// MakeRxSocket opens a socket joined to endpoint's multicast group for
// receiving. SO_REUSEADDR is set before bind via golang.org/x/sys/unix so
// more than one process on the host (or more than one RX socket in this
// process, for a second subscriber on the same group) can bind the same
// multicast port concurrently, which the stdlib net package has no knob
// for.
func (m *PosixMedia) MakeRxSocket(endpoint transport.MulticastEndpoint) (transport.UDPSocket, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var sockErr error
			ctrlErr := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			})
			if ctrlErr != nil {
				return ctrlErr
			}
			return sockErr
		},
	}
	pconn, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", endpoint.Port))
	if err != nil {
		return nil, fmt.Errorf("udp: make rx socket: %w", err)
	}
	conn := pconn.(*net.UDPConn)

	pc := ipv4.NewPacketConn(conn)
	group := &net.UDPAddr{IP: net.IP(endpoint.Group)}
	if err := pc.JoinGroup(m.iface, group); err != nil {
		conn.Close()
		return nil, fmt.Errorf("udp: join multicast group: %w", err)
	}
	return &posixSocket{conn: conn}, nil
}

// posixSocket adapts a net.UDPConn to transport.UDPSocket's non-blocking
// contract: Send sets a short fixed write deadline and Recv an immediate
// read deadline (Recv must never block) rather than leaving the
// connection's blocking default in place.
type posixSocket struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
}

func (s *posixSocket) Send(deadline transport.TimePoint, payload []byte) (transport.PushResult, error) {
	// deadline is the library's opaque monotonic TimePoint, not a wall
	// clock value this socket can wait on; a short fixed send timeout
	// stands in for it since a multicast UDP write essentially never
	// blocks on a healthy host.
	s.conn.SetWriteDeadline(time.Now().Add(50 * time.Millisecond))
	_, err := s.conn.WriteToUDP(payload, s.dst)
	if err != nil {
		if isTimeout(err) {
			return transport.Busy, nil
		}
		return transport.Busy, fmt.Errorf("udp: send: %w", err)
	}
	return transport.Sent, nil
}

func (s *posixSocket) Recv(buf []byte) (int, transport.TimePoint, bool, error) {
	s.conn.SetReadDeadline(time.Now())
	n, _, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if isTimeout(err) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("udp: recv: %w", err)
	}
	return n, transport.TimePoint(0), true, nil
}

func (s *posixSocket) Close() error {
	return s.conn.Close()
}

func isTimeout(err error) bool {
	e, ok := err.(interface{ Timeout() bool })
	return ok && e.Timeout()
}
