package can

import "github.com/cyphal-go/transport"

// tail is the last byte of every CAN frame payload: start-of-transfer,
// end-of-transfer, toggle, and the 5-bit transfer-id modulo.
type tail byte

func (t tail) isStart() bool                    { return t&tailStartOfTransfer != 0 }
func (t tail) isEnd() bool                      { return t&tailEndOfTransfer != 0 }
func (t tail) isToggled() bool                  { return t&tailToggle != 0 }
func (t tail) transferID() transport.TransferID { return transport.TransferID(t & tailTransferIDMask) }

func makeTail(start, end, toggle bool, tid transport.TransferID) tail {
	var t tail
	t = tail(tid & MaxTransferID)
	if toggle {
		t |= tailToggle
	}
	if end {
		t |= tailEndOfTransfer
	}
	if start {
		t |= tailStartOfTransfer
	}
	return t
}
