// File: sga/deserialize.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Header reader. Leaves never copy: each one clones the received metadata
// and narrows the view onto its payload. Any inconsistency in the header is
// reported as wire corruption and nothing decoded so far survives.

package sga

import (
	"encoding/binary"

	"github.com/momentics/hioload-sga/api"
	"github.com/momentics/hioload-sga/pool"
)

// Deserialize decodes an object of shape from pkt, whose header starts
// offset bytes into the view.
func Deserialize(shape Shape, pkt *pool.Metadata, offset int) (Object, error) {
	d := &deserializer{pkt: pkt, buf: pkt.Bytes(), base: offset}
	if offset < 0 || offset > len(d.buf) {
		return nil, corrupt("header offset outside packet").WithContext("offset", offset).WithContext("len", len(d.buf))
	}
	var o Object
	if shape.Composite() {
		o = d.composite(shape, 0)
	} else {
		o = d.field(shape, 0)
	}
	if d.err != nil {
		for _, md := range d.made {
			md.Release()
		}
		return nil, d.err
	}
	return o, nil
}

func corrupt(msg string) *api.Error {
	return api.NewError(api.ErrCodeWireCorruption, msg)
}

type deserializer struct {
	pkt  *pool.Metadata
	buf  []byte
	base int
	made []*pool.Metadata
	err  *api.Error
}

// within reports whether [pos, pos+n) relative to the header lies in the packet.
func (d *deserializer) within(pos, n int) bool {
	return pos >= 0 && n >= 0 && d.base+pos <= len(d.buf) && n <= len(d.buf)-d.base-pos
}

func (d *deserializer) u32(pos int) uint32 {
	if !d.within(pos, 4) {
		d.fail(corrupt("header read outside packet").WithContext("pos", pos))
		return 0
	}
	return binary.LittleEndian.Uint32(d.buf[d.base+pos:])
}

func (d *deserializer) pointer(slot int) (size, offset int) {
	if !d.within(slot, ForwardPointerSize) {
		d.fail(corrupt("forward pointer outside packet").WithContext("slot", slot))
		return 0, 0
	}
	fp := forwardPointerAt(d.buf, d.base+slot)
	return fp.Size(), fp.Offset()
}

func (d *deserializer) fail(err *api.Error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *deserializer) composite(shape Shape, at int) Object {
	words := d.u32(at)
	if d.err != nil {
		return nil
	}
	if int(words) > shape.BitmapWords {
		d.fail(corrupt("bitmap wider than shape").WithContext("words", words).WithContext("shape", shape.String()))
		return nil
	}
	bm := newBitmap(shape.BitmapWords)
	for i := 0; i < int(words); i++ {
		bm[i] = d.u32(at + BitmapLengthField + 4*i)
	}
	for _, b := range bm.Bits() {
		if b >= shape.NumFields {
			d.fail(corrupt("bitmap marks undeclared field").WithContext("field", b).WithContext("shape", shape.String()))
			return nil
		}
	}
	slots := at + BitmapLengthField + 4*int(words)

	switch shape.Kind {
	case KindSingle:
		s := NewSingle()
		if bm.Get(singleMessageField) {
			if leaf, ok := d.field(BytesShape(), slots).(*ByteString); ok && leaf != nil {
				s.SetMessage(leaf)
			}
		}
		return s
	case KindTree:
		t := &Tree{depth: shape.Depth, bitmap: newBitmap(shape.BitmapWords)}
		for i := 0; i < shape.NumFields; i++ {
			if !bm.Get(i) {
				continue
			}
			child := d.field(shape.Field(i), slots+ForwardPointerSize*i)
			if d.err != nil {
				return nil
			}
			t.bitmap.Set(i)
			if i == treeLeftField {
				t.left = child
			} else {
				t.right = child
			}
		}
		return t
	}
	d.fail(corrupt("not a composite shape").WithContext("shape", shape.String()))
	return nil
}

func (d *deserializer) field(shape Shape, slot int) Object {
	size, off := d.pointer(slot)
	if d.err != nil {
		return nil
	}
	switch shape.Kind {
	case KindByteString:
		return d.leaf(size, off)
	case KindList:
		if !d.within(off, ForwardPointerSize*size) || size > len(d.buf) {
			d.fail(corrupt("list table outside packet").WithContext("count", size).WithContext("offset", off))
			return nil
		}
		l := NewList(*shape.Elem, size)
		for i := 0; i < size; i++ {
			e := d.field(*shape.Elem, off+ForwardPointerSize*i)
			if d.err != nil {
				return nil
			}
			l.elts = append(l.elts, e)
			l.numSet++
		}
		return l
	default:
		if !d.within(off, size) {
			d.fail(corrupt("nested header outside packet").WithContext("size", size).WithContext("offset", off))
			return nil
		}
		o := d.composite(shape, off)
		if d.err != nil {
			return nil
		}
		return o
	}
}

func (d *deserializer) leaf(size, off int) Object {
	if !d.within(off, size) {
		d.fail(corrupt("leaf payload outside packet").WithContext("size", size).WithContext("offset", off))
		return nil
	}
	md := d.pkt.Clone()
	if err := md.SetView(size, off+d.pkt.Offset()+d.base); err != nil {
		md.Release()
		d.fail(corrupt("leaf view rejected").WithCause(err))
		return nil
	}
	d.made = append(d.made, md)
	return RefCountedBytes(md)
}
