package presentation

import "github.com/cyphal-go/transport"

// RequestSender is the capability a session needs to issue a request,
// satisfied structurally by both can.RequestTxSession and
// udp.RequestTxSession.
type RequestSender interface {
	Send(payload []byte, remote transport.NodeID, priority transport.Priority, deadline transport.TimePoint) (transport.TransferID, error)
}

// ResponseReceiver is the capability a session needs to deliver
// responses by callback, satisfied structurally by both
// can.ResponseRxSession and udp.ResponseRxSession.
type ResponseReceiver interface {
	SetOnReceive(fn func(transport.Transfer))
}

// Client correlates outgoing requests with their eventual responses by
// transfer-id, per spec.md §4.7, turning the session layer's raw
// request/response pair into response promises.
type Client struct {
	tx      RequestSender
	pending map[transport.TransferID]*RawResponsePromise
}

// NewClient wires a request sender and response receiver pair into a
// correlating client. It installs rx's on-receive callback; the caller
// must not also poll rx.Receive directly, per the poll/callback
// exclusion spec.md §4.5 applies to every RX session.
func NewClient(tx RequestSender, rx ResponseReceiver) *Client {
	c := &Client{tx: tx, pending: make(map[transport.TransferID]*RawResponsePromise)}
	rx.SetOnReceive(c.onResponse)
	return c
}

// Call issues a request and returns a promise for its response. now is
// the request time recorded on the promise; deadline is used both as the
// transport-level send deadline of the request and as the promise's
// expiration time.
func (c *Client) Call(payload []byte, remote transport.NodeID, priority transport.Priority, now, deadline transport.TimePoint) (*RawResponsePromise, error) {
	tid, err := c.tx.Send(payload, remote, priority, deadline)
	if err != nil {
		return nil, err
	}
	p := newRawResponsePromise(now, deadline)
	c.pending[tid] = p
	return p, nil
}

func (c *Client) onResponse(tr transport.Transfer) {
	p, ok := c.pending[tr.Metadata.TransferID]
	if !ok {
		return
	}
	delete(c.pending, tr.Metadata.TransferID)
	p.fulfill(tr)
}

// Run expires every pending promise whose deadline has elapsed, per
// spec.md §4.4 step 4's "fire expired response-promise ... callbacks."
// It must be called regularly by the host application's run loop.
func (c *Client) Run(now transport.TimePoint) {
	for tid, p := range c.pending {
		if now.After(p.deadline) || now == p.deadline {
			p.expire()
			delete(c.pending, tid)
		}
	}
}

// Pending reports the number of in-flight requests awaiting a response
// or expiration.
func (c *Client) Pending() int { return len(c.pending) }
