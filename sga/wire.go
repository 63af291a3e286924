// File: sga/wire.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Header primitives. All integers are little-endian.

package sga

import "encoding/binary"

const (
	SizeField          = 4
	OffsetField        = 4
	ForwardPointerSize = SizeField + OffsetField
	BitmapLengthField  = 4
)

// Bitmap is a presence bitmap, one bit per declared field.
type Bitmap []uint32

func newBitmap(words int) Bitmap { return make(Bitmap, words) }

// Get reports whether field i is present.
func (b Bitmap) Get(i int) bool {
	w := i / 32
	return w < len(b) && b[w]&(1<<(uint(i)%32)) != 0
}

// Set marks field i present.
func (b Bitmap) Set(i int) { b[i/32] |= 1 << (uint(i) % 32) }

// Unset marks field i absent.
func (b Bitmap) Unset(i int) { b[i/32] &^= 1 << (uint(i) % 32) }

// Bits lists the indices of present fields.
func (b Bitmap) Bits() []int {
	var out []int
	for i := 0; i < 32*len(b); i++ {
		if b.Get(i) {
			out = append(out, i)
		}
	}
	return out
}

// ForwardPointer is a typed view over one 8-byte (size, offset) slot.
type ForwardPointer []byte

func forwardPointerAt(buf []byte, at int) ForwardPointer {
	return ForwardPointer(buf[at : at+ForwardPointerSize : at+ForwardPointerSize])
}

func (fp ForwardPointer) Size() int   { return int(binary.LittleEndian.Uint32(fp[0:SizeField])) }
func (fp ForwardPointer) Offset() int { return int(binary.LittleEndian.Uint32(fp[SizeField:])) }

func (fp ForwardPointer) SetSize(v int)   { binary.LittleEndian.PutUint32(fp[0:SizeField], uint32(v)) }
func (fp ForwardPointer) SetOffset(v int) { binary.LittleEndian.PutUint32(fp[SizeField:], uint32(v)) }

func putForwardPointer(buf []byte, at, size, offset int) {
	fp := forwardPointerAt(buf, at)
	fp.SetSize(size)
	fp.SetOffset(offset)
}

func putBitmap(buf []byte, at int, b Bitmap) {
	binary.LittleEndian.PutUint32(buf[at:], uint32(len(b)))
	for i, w := range b {
		binary.LittleEndian.PutUint32(buf[at+BitmapLengthField+4*i:], w)
	}
}
