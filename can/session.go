package can

import "github.com/cyphal-go/transport"

// The six session variants model spec.md §4.5/§9 as a closed set of Go
// types sharing a small capability surface rather than open inheritance:
// each holds a non-owning reference back to its Transport and a
// transfer-id counter (TX) or a Subscription (RX). Destroying a session
// unregisters it from the transport explicitly via Close.

// MessageTxSession publishes transfers on one subject.
type MessageTxSession struct {
	tr         *Transport
	port       transport.PortID
	transferID transport.TransferID
	timeout    transport.Duration
}

// MakeMessageTxSession creates a stateless publisher for subject port.
func (t *Transport) MakeMessageTxSession(port transport.PortID) (*MessageTxSession, error) {
	if port > MaxSubjectID {
		return nil, transport.ErrArgument
	}
	return &MessageTxSession{tr: t, port: port}, nil
}

// Send publishes payload at the given priority, assigning the next
// transfer id for this session. Per spec.md §3's invariant, an anonymous
// node may not transmit multi-frame messages; Disassemble enforces this.
func (s *MessageTxSession) Send(payload []byte, priority transport.Priority, deadline transport.TimePoint) error {
	meta := transport.Metadata{
		Priority:          priority,
		Kind:              transport.KindMessage,
		Port:              s.port,
		RemoteNodeID:      transport.UnsetNodeID,
		TransferID:        s.transferID,
		TransferIDTimeout: s.timeout,
	}
	if err := s.tr.Send(meta, payload, deadline); err != nil {
		return err
	}
	s.transferID++
	return nil
}

// SetTransferIDTimeout clamps and stores the timeout used for future
// sends (informational; the CAN profile's TX path has no RX timeout to
// apply it to, but the setter is kept symmetric with the RX sessions per
// spec.md §4.5).
func (s *MessageTxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeout = d
}

// Close is a no-op for TX sessions: they hold no transport-owned state to
// unregister.
func (s *MessageTxSession) Close() error { return nil }

// MessageRxSession receives transfers published on one subject.
type MessageRxSession struct {
	tr  *Transport
	sub *Subscription
}

// MakeMessageRxSession creates a subscription on subject port, per
// spec.md §3's "at most one Rx session per (kind, port-id)" invariant.
func (t *Transport) MakeMessageRxSession(port transport.PortID, extent int, timeout transport.Duration) (*MessageRxSession, error) {
	if port > MaxSubjectID {
		return nil, transport.ErrArgument
	}
	sub, err := t.makeRxSubscription(transport.KindMessage, port, extent, timeout)
	if err != nil {
		return nil, err
	}
	return &MessageRxSession{tr: t, sub: sub}, nil
}

// Receive returns the most recently latched transfer since the last
// call, non-blocking, or ok=false if none arrived. Calling Receive after
// SetOnReceive was installed has no effect (the callback owns delivery).
func (s *MessageRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

// SetOnReceive installs a push-delivery callback, consuming (firing) any
// already-latched transfer synchronously, per the poll/callback exclusion
// in spec.md §4.5.
func (s *MessageRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

// SetTransferIDTimeout clamps and installs the reassembly timeout applied
// to future transfers on this subscription.
func (s *MessageRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

// Close unregisters the subscription from the transport.
func (s *MessageRxSession) Close() error {
	s.tr.unsubscribe(transport.KindMessage, s.sub.Port)
	return nil
}

// RequestTxSession issues requests to one remote server on one service.
type RequestTxSession struct {
	tr         *Transport
	port       transport.PortID
	transferID transport.TransferID
	timeout    transport.Duration
}

// MakeRequestTxSession creates an issuer for service port.
func (t *Transport) MakeRequestTxSession(port transport.PortID) (*RequestTxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	return &RequestTxSession{tr: t, port: port}, nil
}

// Send issues a request to remote, returning the transfer id assigned so
// the caller can correlate the eventual response (see the presentation
// package's response promise).
func (s *RequestTxSession) Send(payload []byte, remote transport.NodeID, priority transport.Priority, deadline transport.TimePoint) (transport.TransferID, error) {
	tid := s.transferID
	meta := transport.Metadata{
		Priority:          priority,
		Kind:              transport.KindRequest,
		Port:              s.port,
		RemoteNodeID:      remote,
		TransferID:        tid,
		TransferIDTimeout: s.timeout,
	}
	if err := s.tr.Send(meta, payload, deadline); err != nil {
		return 0, err
	}
	s.transferID++
	return tid, nil
}

// SetTransferIDTimeout clamps and stores the timeout used for future
// sends.
func (s *RequestTxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeout = d
}

// Close is a no-op: RequestTxSession holds no transport-owned state.
func (s *RequestTxSession) Close() error { return nil }

// RequestRxSession receives requests addressed to the local node on one
// service.
type RequestRxSession struct {
	tr  *Transport
	sub *Subscription
}

// MakeRequestRxSession creates a server-side listener on service port.
func (t *Transport) MakeRequestRxSession(port transport.PortID, extent int, timeout transport.Duration) (*RequestRxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	sub, err := t.makeRxSubscription(transport.KindRequest, port, extent, timeout)
	if err != nil {
		return nil, err
	}
	return &RequestRxSession{tr: t, sub: sub}, nil
}

// Receive returns the most recently latched request, including its
// RemoteNodeID (the requesting client), non-blocking.
func (s *RequestRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

// SetOnReceive installs a push-delivery callback, per MessageRxSession's
// semantics.
func (s *RequestRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

// SetTransferIDTimeout clamps and installs the reassembly timeout.
func (s *RequestRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

// Close unregisters the subscription from the transport.
func (s *RequestRxSession) Close() error {
	s.tr.unsubscribe(transport.KindRequest, s.sub.Port)
	return nil
}

// ResponseTxSession sends responses back to requesting clients on one
// service.
type ResponseTxSession struct {
	tr   *Transport
	port transport.PortID
}

// MakeResponseTxSession creates a responder for service port.
func (t *Transport) MakeResponseTxSession(port transport.PortID) (*ResponseTxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	return &ResponseTxSession{tr: t, port: port}, nil
}

// Send responds to remote using the transfer id of the request being
// answered, so the client's response promise can correlate it.
func (s *ResponseTxSession) Send(payload []byte, remote transport.NodeID, tid transport.TransferID, priority transport.Priority, deadline transport.TimePoint) error {
	meta := transport.Metadata{
		Priority:     priority,
		Kind:         transport.KindResponse,
		Port:         s.port,
		RemoteNodeID: remote,
		TransferID:   tid,
	}
	return s.tr.Send(meta, payload, deadline)
}

// Close is a no-op: ResponseTxSession holds no transport-owned state.
func (s *ResponseTxSession) Close() error { return nil }

// ResponseRxSession receives responses to requests this node issued, on
// one service.
type ResponseRxSession struct {
	tr  *Transport
	sub *Subscription
}

// MakeResponseRxSession creates a client-side listener on service port.
func (t *Transport) MakeResponseRxSession(port transport.PortID, extent int, timeout transport.Duration) (*ResponseRxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	sub, err := t.makeRxSubscription(transport.KindResponse, port, extent, timeout)
	if err != nil {
		return nil, err
	}
	return &ResponseRxSession{tr: t, sub: sub}, nil
}

// Receive returns the most recently latched response, non-blocking.
func (s *ResponseRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

// SetOnReceive installs a push-delivery callback, per MessageRxSession's
// semantics. The presentation package's response promise layer uses this
// to correlate responses with outstanding requests.
func (s *ResponseRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

// SetTransferIDTimeout clamps and installs the reassembly timeout.
func (s *ResponseRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

// Close unregisters the subscription from the transport.
func (s *ResponseRxSession) Close() error {
	s.tr.unsubscribe(transport.KindResponse, s.sub.Port)
	return nil
}
