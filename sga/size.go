// File: sga/size.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sga

// isNil reports whether o is nil or a typed nil variant.
func isNil(o Object) bool {
	switch v := o.(type) {
	case nil:
		return true
	case *ByteString:
		return v == nil
	case *Single:
		return v == nil
	case *List:
		return v == nil
	case *Tree:
		return v == nil
	}
	return false
}

// fields returns a composite's bitmap and its declared fields in order.
func fields(o Object) (Bitmap, []Object) {
	switch v := o.(type) {
	case *Single:
		var msg Object
		if v.message != nil {
			msg = v.message
		}
		return v.bitmap, []Object{msg}
	case *Tree:
		return v.bitmap, []Object{v.left, v.right}
	}
	return nil, nil
}

// DynamicHeaderSize is the number of header bytes o needs beyond the pointer
// slot its parent reserves for it. Leaves and absent objects need none.
func DynamicHeaderSize(o Object) int {
	if isNil(o) {
		return 0
	}
	switch v := o.(type) {
	case *ByteString:
		return 0
	case *List:
		n := ForwardPointerSize * v.numSet
		for _, e := range v.Elements() {
			n += DynamicHeaderSize(e)
		}
		return n
	case *Single, *Tree:
		bm, fs := fields(v)
		n := v.Shape().FixedHeaderLen()
		for i, f := range fs {
			if bm.Get(i) {
				n += DynamicHeaderSize(f)
			}
		}
		return n
	}
	return 0
}

// TotalHeaderSize is the full header length of o serialized as a root.
// Composites start at offset 0; leaves and lists occupy a root pointer slot.
func TotalHeaderSize(o Object) int {
	if o.Shape().Composite() {
		return DynamicHeaderSize(o)
	}
	return ForwardPointerSize + DynamicHeaderSize(o)
}

// NumZeroCopyEntries counts the zero-copy leaves reachable from o.
func NumZeroCopyEntries(o Object) int {
	n := 0
	walkLeaves(o, func(bs *ByteString) {
		if bs.IsZeroCopy() {
			n++
		}
	})
	return n
}

// ZeroCopyDataLen sums the payload bytes of zero-copy leaves.
func ZeroCopyDataLen(o Object) int {
	n := 0
	walkLeaves(o, func(bs *ByteString) {
		if bs.IsZeroCopy() {
			n += bs.Len()
		}
	})
	return n
}

// walkLeaves visits present leaves depth-first in declaration order.
func walkLeaves(o Object, fn func(*ByteString)) {
	if isNil(o) {
		return
	}
	switch v := o.(type) {
	case *ByteString:
		fn(v)
	case *List:
		for _, e := range v.Elements() {
			walkLeaves(e, fn)
		}
	case *Single, *Tree:
		bm, fs := fields(v)
		for i, f := range fs {
			if bm.Get(i) {
				walkLeaves(f, fn)
			}
		}
	}
}

// Release drops every leaf reference held by o.
func Release(o Object) {
	walkLeaves(o, func(bs *ByteString) { bs.Release() })
}
