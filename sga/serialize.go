// File: sga/serialize.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Header writer. Offsets in the header are relative to the header start:
// copied leaves point at headerLen + entry.TotalOffset, zero-copy leaves at a
// running offset that begins after all copy-context bytes.

package sga

import (
	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
	"github.com/pkg/errors"
)

// SerializedForm is the result of Serialize: the header, the zero-copy
// payloads in depth-first order and the frozen copy-context buffers.
// It holds one reference on every segment until posted or released.
type SerializedForm struct {
	Header      []byte
	ZeroCopy    []*pool.Metadata
	CopyBuffers []*pool.Metadata
}

// HeaderLen returns the header length.
func (f *SerializedForm) HeaderLen() int { return len(f.Header) }

// CopyLen returns the bytes held in copy buffers.
func (f *SerializedForm) CopyLen() int {
	n := 0
	for _, md := range f.CopyBuffers {
		n += md.Len()
	}
	return n
}

// ZeroCopyLen returns the bytes referenced in place.
func (f *SerializedForm) ZeroCopyLen() int {
	n := 0
	for _, md := range f.ZeroCopy {
		n += md.Len()
	}
	return n
}

// TotalLen is the logical message length: header, copies, zero-copy payloads.
func (f *SerializedForm) TotalLen() int {
	return f.HeaderLen() + f.CopyLen() + f.ZeroCopyLen()
}

// Flatten gathers the logical message into one slice.
func (f *SerializedForm) Flatten() []byte {
	out := make([]byte, 0, f.TotalLen())
	out = append(out, f.Header...)
	for _, md := range f.CopyBuffers {
		out = append(out, md.Bytes()...)
	}
	for _, md := range f.ZeroCopy {
		out = append(out, md.Bytes()...)
	}
	return out
}

// Release drops every segment reference still held by the form.
func (f *SerializedForm) Release() {
	for _, md := range f.CopyBuffers {
		md.Release()
	}
	for _, md := range f.ZeroCopy {
		md.Release()
	}
	f.CopyBuffers, f.ZeroCopy = nil, nil
}

// Serialize encodes o. The copy context must be the one o's copied leaves
// were built with; it is consumed. o keeps its own leaf references.
func Serialize(o Object, cc *CopyContext) (*SerializedForm, error) {
	if isNil(o) {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "serialize of nil object")
	}
	hlen := TotalHeaderSize(o)
	s := &serializer{
		hdr:       make([]byte, hlen),
		headerLen: hlen,
		dsOffset:  hlen + cc.DataLen(),
		copyBufs:  cc.NumBuffers(),
		zc:        make([]*pool.Metadata, 0, NumZeroCopyEntries(o)),
	}
	if o.Shape().Composite() {
		s.composite(o, 0)
	} else {
		s.field(o, 0, ForwardPointerSize)
	}
	if s.err != nil {
		for _, md := range s.zc {
			md.Release()
		}
		return nil, s.err
	}
	bufs, err := cc.freeze()
	if err != nil {
		for _, md := range s.zc {
			md.Release()
		}
		return nil, errors.Wrap(err, "serialize")
	}
	return &SerializedForm{Header: s.hdr, ZeroCopy: s.zc, CopyBuffers: bufs}, nil
}

type serializer struct {
	hdr       []byte
	headerLen int
	dsOffset  int
	copyBufs  int
	zc        []*pool.Metadata
	err       error
}

// composite writes o's bitmap and pointer slots at at.
func (s *serializer) composite(o Object, at int) {
	bm, fs := fields(o)
	putBitmap(s.hdr, at, bm)
	slots := at + BitmapLengthField + 4*len(bm)
	dyn := at + o.Shape().FixedHeaderLen()
	for i, f := range fs {
		if !bm.Get(i) {
			continue
		}
		dyn = s.field(f, slots+ForwardPointerSize*i, dyn)
	}
}

// field fills the pointer slot for o and writes any nested header at dyn.
// It returns the next free dynamic offset.
func (s *serializer) field(o Object, slot, dyn int) int {
	if s.err != nil {
		return dyn
	}
	if isNil(o) {
		s.err = api.NewError(api.ErrCodeInvalidArgument, "present field has no value").WithContext("slot", slot)
		return dyn
	}
	switch v := o.(type) {
	case *ByteString:
		s.leaf(v, slot)
		return dyn
	case *List:
		putForwardPointer(s.hdr, slot, v.numSet, dyn)
		next := dyn + ForwardPointerSize*v.numSet
		for i, e := range v.Elements() {
			next = s.field(e, dyn+ForwardPointerSize*i, next)
		}
		return next
	default:
		size := DynamicHeaderSize(o)
		putForwardPointer(s.hdr, slot, size, dyn)
		s.composite(o, dyn)
		return dyn + size
	}
}

func (s *serializer) leaf(bs *ByteString, slot int) {
	if e, ok := bs.CopyEntry(); ok {
		if e.Index >= s.copyBufs {
			s.err = api.NewError(api.ErrCodeInvalidArgument, "copied leaf belongs to another copy context").
				WithContext("buffer", e.Index)
			return
		}
		putForwardPointer(s.hdr, slot, e.Len, s.headerLen+e.TotalOffset)
		return
	}
	md := bs.Metadata()
	putForwardPointer(s.hdr, slot, md.Len(), s.dsOffset)
	s.dsOffset += md.Len()
	s.zc = append(s.zc, md.Clone())
}
