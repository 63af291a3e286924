// File: sga/shape.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

import (
	"fmt"

	"github.com/momentics/hioload-sga/api"
)

// Kind enumerates the closed set of object variants.
type Kind uint8

const (
	KindByteString Kind = iota
	KindSingle
	KindList
	KindTree
)

func (k Kind) String() string {
	switch k {
	case KindByteString:
		return "bytes"
	case KindSingle:
		return "single"
	case KindList:
		return "list"
	case KindTree:
		return "tree"
	default:
		return "unknown"
	}
}

// MaxTreeDepth bounds Tree shapes (32 leaves at depth 5).
const MaxTreeDepth = 5

// Shape is the per-shape descriptor: the constants the wire format needs.
type Shape struct {
	Kind        Kind
	Depth       int    // tree depth, 1..MaxTreeDepth
	NumFields   int    // declared fields of a composite
	BitmapWords int    // u32 words in the presence bitmap
	Elem        *Shape // list element shape
}

// BytesShape describes a ByteString leaf.
func BytesShape() Shape { return Shape{Kind: KindByteString} }

// SingleShape describes a composite with one ByteString field.
func SingleShape() Shape { return Shape{Kind: KindSingle, NumFields: 1, BitmapWords: 1} }

// ListShape describes a homogeneous list of elem.
func ListShape(elem Shape) Shape {
	e := elem
	return Shape{Kind: KindList, Elem: &e}
}

// TreeShape describes a bounded binary tree of the given depth.
func TreeShape(depth int) (Shape, error) {
	if depth < 1 || depth > MaxTreeDepth {
		return Shape{}, api.NewError(api.ErrCodeInvalidArgument, "tree depth out of range").
			WithContext("depth", depth)
	}
	return Shape{Kind: KindTree, Depth: depth, NumFields: 2, BitmapWords: 1}, nil
}

// MustTreeShape is TreeShape for constant depths.
func MustTreeShape(depth int) Shape {
	s, err := TreeShape(depth)
	if err != nil {
		panic(err)
	}
	return s
}

// Composite reports whether the shape carries its own bitmap header.
func (s Shape) Composite() bool {
	return s.Kind == KindSingle || s.Kind == KindTree
}

// FixedHeaderLen is the bitmap length field, the bitmap and one pointer slot
// per declared field. Zero for leaves and lists.
func (s Shape) FixedHeaderLen() int {
	if !s.Composite() {
		return 0
	}
	return BitmapLengthField + 4*s.BitmapWords + ForwardPointerSize*s.NumFields
}

// Field returns the shape of field i of a composite.
func (s Shape) Field(i int) Shape {
	switch s.Kind {
	case KindSingle:
		return BytesShape()
	case KindTree:
		if s.Depth == 1 {
			return SingleShape()
		}
		return MustTreeShape(s.Depth - 1)
	}
	panic(fmt.Sprintf("sga: %s has no fields", s.Kind))
}

// Equal compares shapes structurally.
func (s Shape) Equal(o Shape) bool {
	if s.Kind != o.Kind || s.Depth != o.Depth || s.NumFields != o.NumFields || s.BitmapWords != o.BitmapWords {
		return false
	}
	if s.Kind == KindList {
		return s.Elem.Equal(*o.Elem)
	}
	return true
}

func (s Shape) String() string {
	switch s.Kind {
	case KindList:
		return "list<" + s.Elem.String() + ">"
	case KindTree:
		return fmt.Sprintf("tree%d", s.Depth)
	default:
		return s.Kind.String()
	}
}
