// Package transport defines the data model and error taxonomy shared by the
// CAN and UDP transport profiles: node/port/transfer identifiers, transfer
// priority, the logical Transfer and Metadata types, the Media and
// MemoryResource contracts consumed by the core, and the monotonic
// TimePoint used throughout the transport, executor, and presentation
// layers.
package transport

import "fmt"

// NodeID identifies a participant on the network. The zero value is a
// valid node id (0); use the package's Unset sentinel to represent an
// anonymous node. Per-profile maximum values are exposed by each profile
// package (can.MaxNodeID, udp.MaxNodeID).
type NodeID uint32

// UnsetNodeID denotes an anonymous node: a participant with no assigned
// node id.
const UnsetNodeID NodeID = 0xFFFFFFFF

// IsUnset reports whether n is the anonymous sentinel.
func (n NodeID) IsUnset() bool { return n == UnsetNodeID }

// PortID identifies a subject (message topic) or a service. Per-profile
// maximum values are exposed by each profile package.
type PortID uint32

// TransferID is a monotonically advancing counter, unique per
// (source, destination, kind, port) tuple. It wraps according to the
// transport profile's modulo (32 for CAN, 2^64 for UDP); sequence
// comparisons must use modular distance, not direct ordering.
type TransferID uint64

// Priority is one of the eight Cyphal transfer priority levels, lowest
// value most urgent.
type Priority uint8

const (
	PriorityExceptional Priority = iota
	PriorityImmediate
	PriorityFast
	PriorityHigh
	PriorityNominal // Default priority for application traffic.
	PriorityLow
	PrioritySlow
	PriorityOptional
)

// NumPriorities is the number of valid priority levels.
const NumPriorities = 8

func (p Priority) String() string {
	names := [NumPriorities]string{"Exceptional", "Immediate", "Fast", "High", "Nominal", "Low", "Slow", "Optional"}
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}

// Kind identifies whether a transfer is a broadcast message or one leg of
// a service call.
type Kind uint8

const (
	KindMessage Kind = iota
	KindRequest
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// NumKinds is the number of transfer kinds.
const NumKinds = 3

// TimePoint is a monotonic instant expressed in microseconds since an
// arbitrary, implementation-defined epoch. Only differences and ordering
// between TimePoints are meaningful.
type TimePoint int64

// MaxTimePoint represents "never" — a deadline that never elapses.
const MaxTimePoint TimePoint = 1<<63 - 1

// Before reports whether t happens strictly before u.
func (t TimePoint) Before(u TimePoint) bool { return t < u }

// After reports whether t happens strictly after u.
func (t TimePoint) After(u TimePoint) bool { return t > u }

// Add returns t advanced by d microseconds.
func (t TimePoint) Add(d Duration) TimePoint { return t + TimePoint(d) }

// Sub returns the signed distance in microseconds from u to t.
func (t TimePoint) Sub(u TimePoint) Duration { return Duration(t - u) }

// Duration is a span of time in microseconds.
type Duration int64

// Metadata carries the addressing and sequencing fields of a transfer,
// independent of the payload.
type Metadata struct {
	Priority          Priority
	Kind              Kind
	Port              PortID
	RemoteNodeID      NodeID // source on RX, destination on TX for service transfers; unset for messages.
	TransferID        TransferID
	TransferIDTimeout Duration
}

// Transfer is a fully reassembled, application-visible unit of
// communication.
type Transfer struct {
	Metadata  Metadata
	Timestamp TimePoint
	Payload   []byte
}

// ProtocolParams describes the limits and identity of the transport
// instance's protocol profile, as returned by Transport.ProtocolParams.
type ProtocolParams struct {
	TransferIDModulo uint64
	MaxNodes         uint32
	MTUBytes         int
}

// Runnable is implemented by every component whose state advances only
// when explicitly driven, never on a background thread: can.Transport and
// udp.Transport. (The executor is driven through SpinOnce instead.) A host
// application can hold a slice of Runnable and drive them uniformly from
// one loop.
type Runnable interface {
	Run(now TimePoint) error
}
