// File: pool/buffer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"io"

	"github.com/momentics/hioload-sga/api"
)

// Buffer is an exclusively owned write target inside one region item.
// It is consumed exactly once, by Freeze or by Release.
type Buffer struct {
	r        *Region
	idx      int
	data     []byte
	n        int
	consumed bool
}

var _ io.Writer = (*Buffer)(nil)

// Write appends p. A short write returns io.ErrShortWrite.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.consumed {
		return 0, api.ErrConsumed
	}
	n := copy(b.data[b.n:], p)
	b.n += n
	if n < len(p) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

// Bytes returns the bytes written so far.
func (b *Buffer) Bytes() []byte { return b.data[:b.n] }

// Tail returns the writable space after the written bytes.
func (b *Buffer) Tail() []byte { return b.data[b.n:] }

// Advance marks n bytes of Tail as written.
func (b *Buffer) Advance(n int) error {
	if n < 0 || b.n+n > len(b.data) {
		return api.NewError(api.ErrCodeInvalidArgument, "advance past buffer capacity").
			WithContext("len", b.n).WithContext("advance", n)
	}
	b.n += n
	return nil
}

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return b.n }

// Cap returns the item size.
func (b *Buffer) Cap() int { return len(b.data) }

// Remaining returns the unwritten capacity.
func (b *Buffer) Remaining() int { return len(b.data) - b.n }

// RegionID returns the owning region id.
func (b *Buffer) RegionID() int { return b.r.id }

// Index returns the item index.
func (b *Buffer) Index() int { return b.idx }

// Freeze converts the buffer into an immutable Metadata view of
// [offset, offset+length). The buffer is consumed on success.
func (b *Buffer) Freeze(offset, length int) (*Metadata, error) {
	if b.consumed {
		return nil, api.ErrConsumed
	}
	if offset < 0 || length < 0 || offset+length > len(b.data) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "freeze outside item bounds").
			WithContext("offset", offset).WithContext("len", length)
	}
	b.r.incRef(b.idx)
	md := &Metadata{r: b.r, idx: b.idx, off: offset, n: length}
	b.Release()
	return md, nil
}

// Release drops the buffer without freezing it.
func (b *Buffer) Release() {
	if b.consumed {
		return
	}
	b.consumed = true
	b.data = nil
	b.r.decRef(b.idx)
}
