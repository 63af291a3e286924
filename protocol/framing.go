// File: protocol/framing.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"encoding/binary"

	"github.com/momentics/hioload-sga/api"
)

// FramingBlock is a view over the first FramingLen bytes of a frame.
type FramingBlock []byte

// Framing returns the block at the start of b.
func Framing(b []byte) (FramingBlock, error) {
	if len(b) < FramingLen {
		return nil, api.NewError(api.ErrCodeWireCorruption, "frame shorter than framing block").
			WithContext("len", len(b))
	}
	return FramingBlock(b[:FramingLen]), nil
}

// PutFraming writes a complete framing block into b, which must hold
// FramingLen bytes. Reserved words are zeroed.
func PutFraming(b []byte, timestamp, flowID uint64) {
	fb := FramingBlock(b[:FramingLen])
	fb.SetTimestamp(timestamp)
	binary.LittleEndian.PutUint64(fb[8:16], 0)
	fb.SetFlowID(flowID)
	binary.LittleEndian.PutUint64(fb[24:32], 0)
}

func (fb FramingBlock) Timestamp() uint64 { return binary.LittleEndian.Uint64(fb[0:8]) }
func (fb FramingBlock) FlowID() uint64 { return binary.LittleEndian.Uint64(fb[16:24]) }
func (fb FramingBlock) SetTimestamp(v uint64) { binary.LittleEndian.PutUint64(fb[0:8], v) }
func (fb FramingBlock) SetFlowID(v uint64) { binary.LittleEndian.PutUint64(fb[16:24], v) }
