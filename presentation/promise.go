// Package presentation implements the optional adapter above the raw
// transport described in spec.md §4.7: a response promise correlating
// one outgoing request's transfer-id with at most one inbound response
// or a deadline, and a typed wrapper that decodes the raw payload on
// demand.
package presentation

import "github.com/cyphal-go/transport"

// State is one of a response promise's three possible states, per
// spec.md §8 property 8: Pending transitions to exactly one of
// Fulfilled or Expired.
type State uint8

const (
	Pending State = iota
	Fulfilled
	Expired
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// RawResponsePromise correlates one request to its eventual response,
// forwarding the raw transfer bytes uninterpreted. It is not safe for
// concurrent use; like the rest of the core, it is driven from one
// thread via Client.Run.
type RawResponsePromise struct {
	requestTime transport.TimePoint
	deadline    transport.TimePoint
	state       State
	transfer    transport.Transfer
	err         error
	taken       bool
	callback    func(transport.Transfer, error)
}

func newRawResponsePromise(requestTime, deadline transport.TimePoint) *RawResponsePromise {
	return &RawResponsePromise{requestTime: requestTime, deadline: deadline, state: Pending}
}

// State reports the promise's current state.
func (p *RawResponsePromise) State() State { return p.state }

// GetRequestTime returns the time the correlated request was sent.
func (p *RawResponsePromise) GetRequestTime() transport.TimePoint { return p.requestTime }

// SetDeadline changes the deadline used for future expiration checks.
// Setting it to transport.MaxTimePoint disables expiration.
func (p *RawResponsePromise) SetDeadline(tp transport.TimePoint) { p.deadline = tp }

// GetResult is a non-consuming peek: it returns the latched response or
// error once the promise has left Pending, and ok=false otherwise or
// once the result has been taken (by FetchResult or a fired callback).
func (p *RawResponsePromise) GetResult() (transport.Transfer, error, bool) {
	if p.state == Pending || p.taken {
		return transport.Transfer{}, nil, false
	}
	return p.transfer, p.err, true
}

// FetchResult consumes the latched result: the first call after
// fulfillment or expiration returns it with ok=true; every call after
// that returns ok=false forever, per spec.md §8 property 8.
func (p *RawResponsePromise) FetchResult() (transport.Transfer, error, bool) {
	tr, err, ok := p.GetResult()
	if ok {
		p.taken = true
	}
	return tr, err, ok
}

// SetCallback installs fn to fire exactly once, per spec.md §4.7. If a
// result is already latched and unconsumed, fn fires synchronously and
// consumes it. Installing a callback after the result has already been
// consumed (by FetchResult or a prior callback firing) has no effect,
// per spec.md §8 property 9's converse.
func (p *RawResponsePromise) SetCallback(fn func(transport.Transfer, error)) {
	if p.state != Pending {
		if fn == nil || p.taken {
			return
		}
		p.taken = true
		fn(p.transfer, p.err)
		return
	}
	p.callback = fn
}

func (p *RawResponsePromise) fulfill(tr transport.Transfer) {
	if p.state != Pending {
		return
	}
	p.state = Fulfilled
	p.transfer = tr
	p.fireIfArmed()
}

func (p *RawResponsePromise) expire() {
	if p.state != Pending {
		return
	}
	p.state = Expired
	p.err = transport.ErrExpired
	p.fireIfArmed()
}

func (p *RawResponsePromise) fireIfArmed() {
	if p.callback == nil {
		return
	}
	cb := p.callback
	p.callback = nil
	p.taken = true
	cb(p.transfer, p.err)
}
