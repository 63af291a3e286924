// File: sga/copy_context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CopyContext collects small or unresolvable payloads into TX staging buffers.

package sga

import (
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
	"github.com/pkg/errors"
)

// CopyEntry locates one copied value inside the copy context.
type CopyEntry struct {
	Index       int // staging buffer index
	Start       int // offset inside that buffer
	Len         int
	TotalOffset int // offset across all staging buffers

	data []byte
}

// Bytes returns the copied bytes. They stay valid while the context, or the
// serialized form built from it, is alive.
func (e CopyEntry) Bytes() []byte { return e.data }

// CopyContext owns the staging buffers of one message.
type CopyContext struct {
	dp        Datapath
	threshold int
	bufs      []*pool.Buffer
	dataLen   int
	consumed  bool
}

// NewCopyContext creates an empty context that allocates from dp.
func NewCopyContext(dp Datapath) *CopyContext {
	return &CopyContext{dp: dp, threshold: dp.CopyingThreshold()}
}

// ShouldCopy reports whether b is below the copy threshold.
func (cc *CopyContext) ShouldCopy(b []byte) bool {
	return len(b) < cc.threshold
}

// Copy appends b to the current staging buffer, opening a new one when the
// current one cannot hold all of b. Values are never split across buffers,
// so a value larger than a whole staging buffer fails with ErrValueTooLarge.
func (cc *CopyContext) Copy(b []byte) (CopyEntry, error) {
	if cc.consumed {
		return CopyEntry{}, api.ErrConsumed
	}
	if len(cc.bufs) == 0 || cc.bufs[len(cc.bufs)-1].Remaining() < len(b) {
		buf, capacity, ok := cc.dp.AllocateTxBuffer()
		if !ok {
			return CopyEntry{}, errors.Wrap(api.ErrResourceExhausted, "staging buffer")
		}
		if len(b) > capacity {
			buf.Release()
			return CopyEntry{}, errors.Wrapf(api.ErrValueTooLarge, "copy %d bytes into %d byte buffer", len(b), capacity)
		}
		cc.bufs = append(cc.bufs, buf)
	}
	idx := len(cc.bufs) - 1
	buf := cc.bufs[idx]
	start := buf.Len()
	if _, err := buf.Write(b); err != nil {
		return CopyEntry{}, errors.Wrap(err, "staging write")
	}
	e := CopyEntry{
		Index:       idx,
		Start:       start,
		Len:         len(b),
		TotalOffset: cc.dataLen,
		data:        buf.Bytes()[start : start+len(b) : start+len(b)],
	}
	cc.dataLen += len(b)
	return e, nil
}

// DataLen returns the bytes copied so far across all staging buffers.
func (cc *CopyContext) DataLen() int { return cc.dataLen }

// NumBuffers returns how many staging buffers are open.
func (cc *CopyContext) NumBuffers() int { return len(cc.bufs) }

// freeze turns every non-empty staging buffer into a Metadata view and
// consumes the context.
func (cc *CopyContext) freeze() ([]*pool.Metadata, error) {
	if cc.consumed {
		return nil, api.ErrConsumed
	}
	cc.consumed = true
	out := make([]*pool.Metadata, 0, len(cc.bufs))
	for i, buf := range cc.bufs {
		if buf.Len() == 0 {
			buf.Release()
			continue
		}
		md, err := buf.Freeze(0, buf.Len())
		if err != nil {
			for _, m := range out {
				m.Release()
			}
			for _, rest := range cc.bufs[i+1:] {
				rest.Release()
			}
			return nil, errors.Wrap(err, "freeze staging buffer")
		}
		out = append(out, md)
	}
	cc.bufs = nil
	return out, nil
}

// Release drops staging buffers that were never serialized.
func (cc *CopyContext) Release() {
	for _, buf := range cc.bufs {
		buf.Release()
	}
	cc.bufs = nil
	cc.consumed = true
}
