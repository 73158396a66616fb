package udp

import (
	"fmt"

	"github.com/cyphal-go/transport"
	"github.com/rs/zerolog"
)

const maxMedia = 3

// subKey identifies one subscription's socket slot.
type subKey struct {
	kind transport.Kind
	port transport.PortID
}

func endpointKey(e transport.MulticastEndpoint) string {
	return fmt.Sprintf("%x:%d", e.Group, e.Port)
}

// Transport is the Cyphal/UDP transport core, the UDP-profile analogue
// of can.Transport: it composes the datagram codec, per-media TX
// queues, lazily-opened multicast sockets, the subscription registry,
// and dispatches incoming datagrams to sessions.
type Transport struct {
	media       []transport.UDPMedia
	txQueues    []*TxQueue
	txSockets   []map[string]transport.UDPSocket
	rxSockets   []map[subKey]transport.UDPSocket
	presentMTU  int
	localNodeID transport.NodeID
	registry    *subscriptionRegistry
	mem         transport.MemoryResource
	log         zerolog.Logger
	liveSessions int
	readBuf      []byte
}

// New constructs a transport over the given media set, per spec.md
// §4.4. local may be transport.UnsetNodeID to start anonymous.
func New(media []transport.UDPMedia, txCapacity int, local transport.NodeID, mem transport.MemoryResource, log zerolog.Logger) (*Transport, error) {
	if len(media) == 0 || len(media) > maxMedia {
		return nil, fmt.Errorf("udp: construct transport: %w", transport.ErrArgument)
	}
	if !local.IsUnset() && uint32(local) > MaxNodeID {
		return nil, fmt.Errorf("udp: construct transport: %w", transport.ErrArgument)
	}
	if mem == nil {
		mem = transport.HeapMemory{}
	}
	if _, ok := mem.Allocate(len(media) * txCapacity); !ok {
		return nil, fmt.Errorf("udp: construct transport: %w", transport.ErrMemory)
	}

	minMTU := media[0].MTU()
	queues := make([]*TxQueue, len(media))
	txSockets := make([]map[string]transport.UDPSocket, len(media))
	rxSockets := make([]map[subKey]transport.UDPSocket, len(media))
	for i, m := range media {
		if m.MTU() < minMTU {
			minMTU = m.MTU()
		}
		queues[i] = NewTxQueue(txCapacity)
		txSockets[i] = make(map[string]transport.UDPSocket)
		rxSockets[i] = make(map[subKey]transport.UDPSocket)
	}

	t := &Transport{
		media:       append([]transport.UDPMedia(nil), media...),
		txQueues:    queues,
		txSockets:   txSockets,
		rxSockets:   rxSockets,
		presentMTU:  minMTU,
		localNodeID: local,
		registry:    newSubscriptionRegistry(),
		mem:         mem,
		log:         log,
		readBuf:     make([]byte, HeaderSize+minMTU),
	}
	return t, nil
}

func (t *Transport) LocalNodeID() (transport.NodeID, bool) {
	return t.localNodeID, !t.localNodeID.IsUnset()
}

func (t *Transport) SetLocalNodeID(id transport.NodeID) error {
	if uint32(id) > MaxNodeID && !id.IsUnset() {
		return fmt.Errorf("udp: set local node id: %w", transport.ErrArgument)
	}
	if t.localNodeID == id {
		return nil
	}
	if !t.localNodeID.IsUnset() {
		return fmt.Errorf("udp: set local node id: %w", transport.ErrArgument)
	}
	t.localNodeID = id
	return nil
}

func (t *Transport) ProtocolParams() transport.ProtocolParams {
	return transport.ProtocolParams{
		TransferIDModulo: 0,
		MaxNodes:         MaxNodeID + 1,
		MTUBytes:         t.presentMTU,
	}
}

func (t *Transport) makeRxSubscription(kind transport.Kind, port transport.PortID, extent int, timeout transport.Duration) (*Subscription, error) {
	sub := newSubscription(kind, port, extent, timeout)
	if err := t.registry.add(sub); err != nil {
		return nil, fmt.Errorf("udp: subscribe %s port %d: %w", kind, port, err)
	}
	endpoint := groupFor(kind, port, t.localNodeID)
	key := subKey{kind: kind, port: port}
	for i, m := range t.media {
		sock, err := m.MakeRxSocket(endpoint)
		if err != nil {
			for j := 0; j < i; j++ {
				if s, ok := t.rxSockets[j][key]; ok {
					s.Close()
					delete(t.rxSockets[j], key)
				}
			}
			t.registry.remove(kind, port)
			return nil, fmt.Errorf("udp: subscribe %s port %d: %w", kind, port, err)
		}
		t.rxSockets[i][key] = sock
	}
	t.liveSessions++
	return sub, nil
}

func (t *Transport) unsubscribe(kind transport.Kind, port transport.PortID) {
	key := subKey{kind: kind, port: port}
	for i := range t.media {
		if sock, ok := t.rxSockets[i][key]; ok {
			sock.Close()
			delete(t.rxSockets[i], key)
		}
	}
	t.registry.remove(kind, port)
	t.liveSessions--
}

func groupFor(kind transport.Kind, port transport.PortID, local transport.NodeID) transport.MulticastEndpoint {
	if kind == transport.KindMessage {
		return MulticastGroupForSubject(port)
	}
	return MulticastGroupForService(port, local)
}

// Send fragments payload and enqueues the resulting datagrams on every
// medium's TX queue (redundant transmit), per spec.md §4.4.
func (t *Transport) Send(meta transport.Metadata, payload []byte, deadline transport.TimePoint) error {
	datagrams, err := Disassemble(meta, payload, t.localNodeID, t.presentMTU)
	if err != nil {
		return fmt.Errorf("udp: send: %w", err)
	}
	successes := 0
	var lastErr error
	for i, q := range t.txQueues {
		ok := true
		for _, d := range datagrams {
			if pushErr := q.Push(deadline, meta.Priority, d); pushErr != nil {
				ok = false
				lastErr = pushErr
				t.log.Debug().Int("media", i).Err(pushErr).Msg("udp: tx queue push failed")
				break
			}
		}
		if ok {
			successes++
		}
	}
	if successes == 0 {
		return fmt.Errorf("udp: send: %w", lastErr)
	}
	return nil
}

// Run drives one iteration of the transport's scheduling loop, per
// spec.md §4.4.
func (t *Transport) Run(now transport.TimePoint) error {
	t.runTX(now)
	t.runRX(now)
	return nil
}

func (t *Transport) txSocketFor(mediaIdx int, endpoint transport.MulticastEndpoint) (transport.UDPSocket, error) {
	key := endpointKey(endpoint)
	if sock, ok := t.txSockets[mediaIdx][key]; ok {
		return sock, nil
	}
	sock, err := t.media[mediaIdx].MakeTxSocket(endpoint)
	if err != nil {
		return nil, err
	}
	t.txSockets[mediaIdx][key] = sock
	return sock, nil
}

func (t *Transport) runTX(now transport.TimePoint) {
	for i, q := range t.txQueues {
		for {
			item := q.Peek(now)
			if item == nil {
				break
			}
			sock, err := t.txSocketFor(i, item.dgram.Endpoint)
			if err != nil {
				t.log.Debug().Int("media", i).Err(err).Msg("udp: tx socket open failed, dropping datagram")
				q.Pop()
				continue
			}
			res, err := sock.Send(item.deadline, item.dgram.Payload)
			if err != nil {
				t.log.Debug().Int("media", i).Err(err).Msg("udp: socket send error, dropping datagram")
				q.Pop()
				continue
			}
			if res == transport.Busy {
				break
			}
			q.Pop()
		}
	}
}

func (t *Transport) runRX(now transport.TimePoint) {
	for i, sockets := range t.rxSockets {
		for key, sock := range sockets {
			for {
				n, ts, ok, err := sock.Recv(t.readBuf)
				if err != nil {
					t.log.Debug().Int("media", i).Err(err).Msg("udp: socket recv error")
					break
				}
				if !ok {
					break
				}
				h, payload, parsedOK := ParseHeader(t.readBuf[:n])
				if !parsedOK || h.Kind != key.kind || h.Port != key.port {
					continue
				}
				if h.Kind != transport.KindMessage && !h.Destination.IsUnset() && h.Destination != t.localNodeID {
					continue
				}
				sub, ok := t.registry.get(h.Kind, h.Port)
				if !ok {
					continue
				}
				if ts == 0 {
					ts = now
				}
				transfer, done := sub.Accept(ts, h, payload)
				if !done {
					continue
				}
				t.deliver(sub, transfer)
			}
		}
	}
}

func (t *Transport) deliver(sub *Subscription, tr transport.Transfer) {
	if sub.onReceive != nil {
		sub.onReceive(tr)
	} else {
		sub.latched = &tr
	}
}

// Close drains every TX queue, closes open sockets, and releases
// transport-owned memory.
func (t *Transport) Close() error {
	if t.liveSessions != 0 {
		panic("udp: transport destroyed with live sessions")
	}
	for _, q := range t.txQueues {
		q.Drain()
	}
	for _, sockets := range t.txSockets {
		for key, sock := range sockets {
			sock.Close()
			delete(sockets, key)
		}
	}
	return nil
}
