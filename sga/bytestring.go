// File: sga/bytestring.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

import (
	"fmt"

	"github.com/momentics/hioload-sga/pool"
	"github.com/pkg/errors"
)

// Object is one of *ByteString, *Single, *List or *Tree.
type Object interface {
	Shape() Shape
	isObject()
}

// ByteString is a leaf. It either references registered memory in place
// (RefCounted) or lives in a copy context staging buffer (Copied).
type ByteString struct {
	md     *pool.Metadata
	entry  CopyEntry
	copied bool
}

func (*ByteString) isObject() {}

// Shape implements Object.
func (*ByteString) Shape() Shape { return BytesShape() }

// NewByteString builds a leaf for b. Values below the copy threshold are
// copied; otherwise b is resolved to registered memory, and copied only when
// it does not resolve.
func NewByteString(dp Datapath, cc *CopyContext, b []byte) (*ByteString, error) {
	if cc.ShouldCopy(b) {
		return copiedBytes(cc, b)
	}
	if md, ok := dp.Resolve(b); ok {
		return RefCountedBytes(md), nil
	}
	return copiedBytes(cc, b)
}

func copiedBytes(cc *CopyContext, b []byte) (*ByteString, error) {
	e, err := cc.Copy(b)
	if err != nil {
		return nil, errors.Wrap(err, "copy leaf")
	}
	return &ByteString{entry: e, copied: true}, nil
}

// RefCountedBytes wraps md as a zero-copy leaf. The leaf takes over md's reference.
func RefCountedBytes(md *pool.Metadata) *ByteString {
	return &ByteString{md: md}
}

// Bytes returns the payload.
func (bs *ByteString) Bytes() []byte {
	if bs.copied {
		return bs.entry.Bytes()
	}
	return bs.md.Bytes()
}

// Len returns the payload length.
func (bs *ByteString) Len() int {
	if bs.copied {
		return bs.entry.Len
	}
	return bs.md.Len()
}

// IsZeroCopy reports whether the leaf references registered memory in place.
func (bs *ByteString) IsZeroCopy() bool { return !bs.copied }

// Metadata returns the referenced view of a zero-copy leaf.
func (bs *ByteString) Metadata() *pool.Metadata { return bs.md }

// CopyEntry returns the staging location of a copied leaf.
func (bs *ByteString) CopyEntry() (CopyEntry, bool) { return bs.entry, bs.copied }

// Release drops the leaf's reference on registered memory.
func (bs *ByteString) Release() {
	if bs != nil && bs.md != nil {
		bs.md.Release()
	}
}

func (bs *ByteString) String() string {
	if bs.copied {
		return fmt.Sprintf("bytes(copied buf=%d start=%d len=%d)", bs.entry.Index, bs.entry.Start, bs.entry.Len)
	}
	return fmt.Sprintf("bytes(%s)", bs.md)
}
