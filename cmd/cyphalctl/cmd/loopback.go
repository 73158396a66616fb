package cmd

import (
	"github.com/cyphal-go/transport"
)

// loopbackBus is a shared in-memory CAN bus: every loopbackMedia backed
// by the same bus sees every frame any of them Pushed, like a real CAN
// bus's broadcast semantics. It exists purely to let the demo CLI run
// two transports (e.g. a publisher and a subscriber) in one process
// without a real CAN adapter.
type loopbackBus struct {
	frames []transport.CANFrame
}

// loopbackMedia implements transport.CANMedia over a loopbackBus. Each
// instance tracks its own read cursor so multiple media sharing one bus
// each see every frame exactly once.
type loopbackMedia struct {
	bus    *loopbackBus
	cursor int
	mtu    int
}

func newLoopbackBus() *loopbackBus { return &loopbackBus{} }

func (b *loopbackBus) attach(mtu int) *loopbackMedia {
	return &loopbackMedia{bus: b, mtu: mtu}
}

func (m *loopbackMedia) MTU() int { return m.mtu }

func (m *loopbackMedia) Push(deadline transport.TimePoint, id uint32, payload []byte) (transport.PushResult, error) {
	m.bus.frames = append(m.bus.frames, transport.CANFrame{
		ExtendedID: id,
		Payload:    append([]byte(nil), payload...),
	})
	return transport.Sent, nil
}

func (m *loopbackMedia) Pop(buf []byte) (transport.CANFrame, bool, error) {
	if m.cursor >= len(m.bus.frames) {
		return transport.CANFrame{}, false, nil
	}
	f := m.bus.frames[m.cursor]
	m.cursor++
	return f, true, nil
}

func (m *loopbackMedia) SetFilters(filters []transport.Filter) error { return nil }
