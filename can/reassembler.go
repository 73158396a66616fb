package can

import (
	"github.com/cyphal-go/transport/internal/crc"
	"github.com/cyphal-go/transport"
)

// session is the per-(subscription, source node) reassembly state
// machine, per spec.md §4.1. Redundant media are reconciled here: the
// first media to start a transfer claims the session (mediaIdx) for its
// duration; frames arriving from a different medium for the same
// in-flight transfer are dropped, which is how duplicate traffic from
// redundant links is deduplicated without extra bookkeeping at the
// transport core.
type session struct {
	startTimestamp   transport.TimePoint
	totalPayloadSize int
	payloadSize      int
	payload          []byte
	crc              crc.CRC16
	tid              transport.TransferID
	mediaIdx         int
	toggle           bool
	claimed          bool
}

func (s *session) reset(tid transport.TransferID, mediaIdx int) {
	s.totalPayloadSize = 0
	s.payloadSize = 0
	if s.payload != nil {
		s.payload = s.payload[:0]
	}
	s.crc = crc.Init16
	s.tid = tid & MaxTransferID
	s.toggle = true
	s.mediaIdx = mediaIdx
	s.claimed = true
}

// transferIDDiff returns the forward modular distance from b to a
// (how many steps after b, a is), per spec.md §3's "modular distance"
// requirement for transfer-id sequence comparison.
func transferIDDiff(a, b transport.TransferID) int {
	diff := int(a&MaxTransferID) - int(b&MaxTransferID)
	if diff < 0 {
		diff += TransferIDModulo
	}
	return diff
}

// accept feeds one parsed, validated frame into the session. It returns
// a completed transfer when the frame is the final fragment of a valid
// transfer; ok is false while accumulating or when the frame was
// rejected/discarded (a protocol violation, a stale duplicate, or a
// losing redundant-media frame — never an error the caller must act on,
// per spec.md §4.1's "does not crash").
func (s *session) accept(now transport.TimePoint, mediaIdx int, f ParsedFrame, extent int, tidTimeout transport.Duration) (transport.Transfer, bool) {
	if !s.claimed && f.Start {
		s.reset(f.TransferID, mediaIdx)
		s.startTimestamp = now
	}
	if !s.claimed {
		return transport.Transfer{}, false
	}

	timedOut := now.Sub(s.startTimestamp) > transport.Duration(tidTimeout) && now.After(s.startTimestamp)
	sameMedia := s.mediaIdx == mediaIdx
	newTransferOnSameMedia := sameMedia && f.Start && transferIDDiff(s.tid, f.TransferID) > 1

	if timedOut || newTransferOnSameMedia {
		s.reset(f.TransferID, mediaIdx)
		s.startTimestamp = now
		if !f.Start {
			// Start-of-transfer miss: discard and wait for the next SOT.
			s.claimed = false
			return transport.Transfer{}, false
		}
	}

	if s.mediaIdx != mediaIdx || f.Toggle != s.toggle || f.TransferID != s.tid {
		// Either a losing redundant-media duplicate, a toggle-sequence
		// violation, or a stale transfer id. Silently dropped.
		return transport.Transfer{}, false
	}

	if f.Start {
		s.startTimestamp = now
	}
	single := f.Start && f.End
	if !single {
		s.crc = s.crc.Add(f.Payload)
	}
	if err := s.writePayload(extent, f.Payload); err != nil {
		s.claimed = false
		return transport.Transfer{}, false
	}
	if !f.End {
		s.toggle = !s.toggle
		return transport.Transfer{}, false
	}
	if !single && s.crc != 0 {
		// CRC mismatch: discard, await the next transfer.
		s.reset(s.tid+1, s.mediaIdx)
		return transport.Transfer{}, false
	}

	payload := s.payload
	payloadSize := s.payloadSize
	if !single {
		truncated := s.totalPayloadSize - s.payloadSize
		const crcSize = 2
		if crcSize > truncated {
			payloadSize -= crcSize - truncated
		}
	}
	transfer := transport.Transfer{
		Metadata: transport.Metadata{
			Priority:     f.Priority,
			Kind:         f.Kind,
			Port:         f.Port,
			RemoteNodeID: f.Source,
			TransferID:   f.TransferID,
		},
		Timestamp: s.startTimestamp,
		Payload:   append([]byte(nil), payload[:payloadSize]...),
	}
	s.payload = nil
	s.reset(s.tid+1, s.mediaIdx)
	return transfer, true
}

func (s *session) writePayload(extent int, data []byte) error {
	s.totalPayloadSize += len(data)
	if s.payload == nil && extent > 0 {
		s.payload = make([]byte, extent)
	}
	n := len(data)
	if s.payloadSize+n > extent {
		n = extent - s.payloadSize
	}
	if n < 0 {
		n = 0
	}
	copy(s.payload[s.payloadSize:s.payloadSize+n], data[:n])
	s.payloadSize += n
	return nil
}
