package udp

import "github.com/cyphal-go/transport"

// The six session variants mirror can's session objects, per spec.md
// §4.5, specialized to the UDP profile's larger node-id space.

type MessageTxSession struct {
	tr         *Transport
	port       transport.PortID
	transferID transport.TransferID
	timeout    transport.Duration
}

func (t *Transport) MakeMessageTxSession(port transport.PortID) (*MessageTxSession, error) {
	if port > MaxSubjectID {
		return nil, transport.ErrArgument
	}
	return &MessageTxSession{tr: t, port: port}, nil
}

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

func (s *MessageTxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeout = d
}

func (s *MessageTxSession) Close() error { return nil }

type MessageRxSession struct {
	tr  *Transport
	sub *Subscription
}

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

func (s *MessageRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

func (s *MessageRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

func (s *MessageRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

func (s *MessageRxSession) Close() error {
	s.tr.unsubscribe(transport.KindMessage, s.sub.Port)
	return nil
}

type RequestTxSession struct {
	tr         *Transport
	port       transport.PortID
	transferID transport.TransferID
	timeout    transport.Duration
}

func (t *Transport) MakeRequestTxSession(port transport.PortID) (*RequestTxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	return &RequestTxSession{tr: t, port: port}, nil
}

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

func (s *RequestTxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.timeout = d
}

func (s *RequestTxSession) Close() error { return nil }

type RequestRxSession struct {
	tr  *Transport
	sub *Subscription
}

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

func (s *RequestRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

func (s *RequestRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

func (s *RequestRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

func (s *RequestRxSession) Close() error {
	s.tr.unsubscribe(transport.KindRequest, s.sub.Port)
	return nil
}

type ResponseTxSession struct {
	tr   *Transport
	port transport.PortID
}

func (t *Transport) MakeResponseTxSession(port transport.PortID) (*ResponseTxSession, error) {
	if port > MaxServiceID {
		return nil, transport.ErrArgument
	}
	return &ResponseTxSession{tr: t, port: port}, nil
}

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

func (s *ResponseTxSession) Close() error { return nil }

type ResponseRxSession struct {
	tr  *Transport
	sub *Subscription
}

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

func (s *ResponseRxSession) Receive() (transport.Transfer, bool) {
	if s.sub.latched == nil {
		return transport.Transfer{}, false
	}
	tr := *s.sub.latched
	s.sub.latched = nil
	return tr, true
}

func (s *ResponseRxSession) SetOnReceive(fn func(transport.Transfer)) {
	s.sub.onReceive = fn
	if fn != nil && s.sub.latched != nil {
		tr := *s.sub.latched
		s.sub.latched = nil
		fn(tr)
	}
}

func (s *ResponseRxSession) SetTransferIDTimeout(d transport.Duration) {
	if d < 0 {
		d = 0
	}
	s.sub.Timeout = d
}

func (s *ResponseRxSession) Close() error {
	s.tr.unsubscribe(transport.KindResponse, s.sub.Port)
	return nil
}
