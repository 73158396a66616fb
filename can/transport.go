package can

import (
	"fmt"

	"github.com/cyphal-go/transport"
	"github.com/rs/zerolog"
)

const maxMedia = 255

// Transport is the Cyphal/CAN transport core, per spec.md §4.4: it
// composes the transfer codec, per-media TX queues, the subscription
// registry, and the CAN filter reconciler, dispatches incoming frames to
// sessions, and drives outgoing traffic and timers from Run.
type Transport struct {
	media          []transport.CANMedia
	txQueues       []*TxQueue
	presentMTU     int
	localNodeID    transport.NodeID
	registry       *subscriptionRegistry
	filtersDirty   bool
	mem            transport.MemoryResource
	log            zerolog.Logger
	liveSessions int
	readBuf      []byte
}

// New constructs a transport over the given media set with a fixed TX
// queue capacity per medium, per spec.md §4.4. local may be
// transport.UnsetNodeID to start anonymous.
func New(media []transport.CANMedia, txCapacity int, local transport.NodeID, mem transport.MemoryResource, log zerolog.Logger) (*Transport, error) {
	if len(media) == 0 || len(media) > maxMedia {
		return nil, fmt.Errorf("can: construct transport: %w", transport.ErrArgument)
	}
	if !local.IsUnset() && uint32(local) > MaxNodeID {
		return nil, fmt.Errorf("can: construct transport: %w", transport.ErrArgument)
	}
	if mem == nil {
		mem = transport.HeapMemory{}
	}
	if _, ok := mem.Allocate(len(media) * txCapacity); !ok {
		return nil, fmt.Errorf("can: construct transport: %w", transport.ErrMemory)
	}

	minMTU := media[0].MTU()
	queues := make([]*TxQueue, len(media))
	for i, m := range media {
		if m.MTU() < minMTU {
			minMTU = m.MTU()
		}
		queues[i] = NewTxQueue(txCapacity)
	}

	t := &Transport{
		media:       append([]transport.CANMedia(nil), media...),
		txQueues:    queues,
		presentMTU:  adjustMTU(minMTU),
		localNodeID: local,
		registry:    newSubscriptionRegistry(),
		mem:         mem,
		log:         log,
		readBuf:     make([]byte, MTUFD),
	}
	return t, nil
}

// LocalNodeID returns the configured node id and whether one has been
// assigned.
func (t *Transport) LocalNodeID() (transport.NodeID, bool) {
	return t.localNodeID, !t.localNodeID.IsUnset()
}

// SetLocalNodeID performs the one-shot Unset->value assignment described
// in spec.md §3's invariants: setting to the current value is a no-op;
// any other change after the first assignment is rejected.
func (t *Transport) SetLocalNodeID(id transport.NodeID) error {
	if uint32(id) > MaxNodeID && !id.IsUnset() {
		return fmt.Errorf("can: set local node id: %w", transport.ErrArgument)
	}
	if t.localNodeID == id {
		return nil
	}
	if !t.localNodeID.IsUnset() {
		return fmt.Errorf("can: set local node id: %w", transport.ErrArgument)
	}
	t.localNodeID = id
	t.filtersDirty = true
	return nil
}

// ProtocolParams reports the transport's limits and MTU, per spec.md
// §4.4.
func (t *Transport) ProtocolParams() transport.ProtocolParams {
	return transport.ProtocolParams{
		TransferIDModulo: TransferIDModulo,
		MaxNodes:         MaxNodeID + 1,
		MTUBytes:         t.presentMTU,
	}
}

func (t *Transport) makeRxSubscription(kind transport.Kind, port transport.PortID, extent int, timeout transport.Duration) (*Subscription, error) {
	sub := &Subscription{Kind: kind, Port: port, Extent: extent, Timeout: timeout}
	if err := t.registry.add(sub); err != nil {
		return nil, fmt.Errorf("can: subscribe %s port %d: %w", kind, port, err)
	}
	t.filtersDirty = true
	t.liveSessions++
	return sub, nil
}

func (t *Transport) unsubscribe(kind transport.Kind, port transport.PortID) {
	t.registry.remove(kind, port)
	t.filtersDirty = true
	t.liveSessions--
}

// Send fragments payload per the transfer codec and enqueues the
// resulting frames on every medium's TX queue (redundant transmit), per
// spec.md §4.4/§9's resolution of the cross-media send Open Question:
// success requires at least one medium to accept every frame; Send
// returns an error only if every medium failed.
func (t *Transport) Send(meta transport.Metadata, payload []byte, deadline transport.TimePoint) error {
	frames, err := Disassemble(meta, payload, t.localNodeID, t.presentMTU)
	if err != nil {
		return fmt.Errorf("can: send: %w", err)
	}
	successes := 0
	var lastErr error
	for i, q := range t.txQueues {
		ok := true
		for _, f := range frames {
			if pushErr := q.Push(deadline, meta.Priority, f); pushErr != nil {
				ok = false
				lastErr = pushErr
				t.log.Debug().Int("media", i).Err(pushErr).Msg("can: tx queue push failed")
				break
			}
		}
		if ok {
			successes++
		}
	}
	if successes == 0 {
		return fmt.Errorf("can: send: %w", lastErr)
	}
	return nil
}

// Run drives one iteration of the transport's cooperative scheduling
// loop, per spec.md §4.4: it advances every medium's TX queue, dispatches
// received frames to subscriptions, and reconciles CAN filters.
// Deadline/timer expiry for other components (response promises,
// reassembly) is the caller's responsibility via their own Run/spin.
func (t *Transport) Run(now transport.TimePoint) error {
	t.runTX(now)
	t.runRX(now)
	t.runFilters()
	return nil
}

func (t *Transport) runTX(now transport.TimePoint) {
	for i, q := range t.txQueues {
		for {
			item := q.Peek(now)
			if item == nil {
				break
			}
			res, err := t.media[i].Push(item.deadline, item.frame.ExtendedID, item.frame.Payload)
			if err != nil {
				t.log.Debug().Int("media", i).Err(err).Msg("can: media push error, dropping frame")
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
	for i, m := range t.media {
		frame, ok, err := m.Pop(t.readBuf)
		if err != nil {
			t.log.Debug().Int("media", i).Err(err).Msg("can: media pop error")
			continue
		}
		if !ok {
			continue
		}
		parsed, ok := ParseFrame(frame.ExtendedID, frame.Payload)
		if !ok {
			continue
		}
		if !parsed.Destination.IsUnset() && parsed.Destination != t.localNodeID {
			continue
		}
		sub, ok := t.registry.get(parsed.Kind, parsed.Port)
		if !ok {
			continue
		}
		ts := frame.Timestamp
		if ts == 0 {
			ts = now
		}
		transfer, done := sub.Accept(ts, i, parsed)
		if !done {
			continue
		}
		t.deliver(sub, transfer)
	}
}

// deliver hands a completed transfer to the subscription's callback if one
// is installed, and otherwise latches it for the session to pick up.
func (t *Transport) deliver(sub *Subscription, tr transport.Transfer) {
	if sub.onReceive != nil {
		sub.onReceive(tr)
	} else {
		sub.latched = &tr
	}
}

func (t *Transport) runFilters() {
	if !t.filtersDirty {
		return
	}
	filters := ComputeFilters(t.registry, t.localNodeID)
	for i, m := range t.media {
		if err := m.SetFilters(filters); err != nil {
			t.log.Debug().Int("media", i).Err(err).Msg("can: filter install failed, retrying next run")
			return // retain dirty flag for the next run, per spec.md §7.
		}
	}
	t.filtersDirty = false
}

// Close drains every TX queue and releases transport-owned memory. Per
// spec.md §3, destroying the transport with live sessions is a defect;
// callers must destroy all sessions first.
func (t *Transport) Close() error {
	if t.liveSessions != 0 {
		panic("can: transport destroyed with live sessions")
	}
	for _, q := range t.txQueues {
		q.Drain()
	}
	return nil
}
